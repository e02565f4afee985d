package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"literally/internal/auth"
	"literally/internal/config"
	"literally/internal/model"
	"literally/internal/repository"
	"literally/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var ErrNotEnoughFollowers = errors.New("粉丝数未达到主办大赛的门槛")

type CompetitionService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	gate            *auth.Gate
	transfer        *TransferService
	accountRepo     *repository.AccountRepository
	competitionRepo *repository.CompetitionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewCompetitionService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CompetitionService {
	return &CompetitionService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		gate:            auth.NewGate(db),
		transfer:        NewTransferService(db, redisClient, cfg),
		accountRepo:     repository.NewAccountRepository(db),
		competitionRepo: repository.NewCompetitionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type CreateCompetitionRequest struct {
	HostID      int64  `json:"host_id" binding:"required"`
	Title       string `json:"title" binding:"required,max=128"`
	Description string `json:"description" binding:"max=1024"`
	PrizePool   int64  `json:"prize_pool" binding:"required,gt=0"`
}

// CreateCompetition 主办方创建写作大赛并托管奖池
//
// 【关键点】奖池扣款和大赛落库在同一事务内：
// 扣款失败（余额不足）则大赛不会创建；大赛创建失败则扣款回滚。
// 平台上不存在"已创建但没注资"的大赛
func (s *CompetitionService) CreateCompetition(ctx context.Context, req *CreateCompetitionRequest) (*model.Competition, error) {
	host, err := s.accountRepo.GetByUserID(ctx, req.HostID)
	if err != nil {
		return nil, err
	}
	if host.FollowerCount < s.cfg.Business.MinHostFollowers {
		return nil, ErrNotEnoughFollowers
	}

	competitionNo := idgen.GenerateCompetitionNo()
	comp := &model.Competition{
		CompetitionNo: competitionNo,
		HostID:        req.HostID,
		Title:         req.Title,
		Description:   req.Description,
		PrizePool:     req.PrizePool,
		Status:        model.CompetitionStatusActive,
	}

	err = s.transfer.RunSerialized(ctx, req.HostID, competitionNo, func(tx *gorm.DB) error {
		remark := fmt.Sprintf("奖池托管-%s", req.Title)
		if _, err := s.transfer.DebitTx(ctx, tx, req.HostID, req.PrizePool, model.ReasonCompetitionFund, competitionNo, remark); err != nil {
			return err
		}
		if err := s.competitionRepo.Create(ctx, tx, comp); err != nil {
			return fmt.Errorf("创建大赛失败: %w", err)
		}
		return s.writeEvent(ctx, tx, model.EventCompetitionFunded, comp)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("大赛已创建并注资: competitionNo=%s, hostID=%d, prizePool=%d",
		competitionNo, req.HostID, req.PrizePool)
	return comp, nil
}

type JoinCompetitionRequest struct {
	CompetitionNo string `json:"competition_no" binding:"required"`
	UserID        int64  `json:"user_id" binding:"required"`
	SubmissionRef string `json:"submission_ref" binding:"max=128"`
}

// JoinCompetition 报名参赛，每人每赛只能报名一次
func (s *CompetitionService) JoinCompetition(ctx context.Context, req *JoinCompetitionRequest) (*model.CompetitionEntry, error) {
	comp, err := s.competitionRepo.GetByCompetitionNo(ctx, req.CompetitionNo)
	if err != nil {
		return nil, err
	}
	if comp.Status != model.CompetitionStatusActive {
		return nil, repository.ErrInvalidStateTransition
	}

	existing, err := s.competitionRepo.GetEntry(ctx, req.CompetitionNo, req.UserID)
	if err != nil && !errors.Is(err, repository.ErrEntryNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, repository.ErrAlreadyEntered
	}

	entry := &model.CompetitionEntry{
		CompetitionNo: req.CompetitionNo,
		UserID:        req.UserID,
		SubmissionRef: req.SubmissionRef,
	}
	if err := s.competitionRepo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	log.Printf("报名成功: competitionNo=%s, userID=%d", req.CompetitionNo, req.UserID)
	return entry, nil
}

// SelectWinner 主办方加冕获奖者：结赛并发放奖金
//
// 【关键点】
// 1. 只有主办方本人能结赛（授权闸门在任何资金操作之前）
// 2. 结赛 CAS（ACTIVE -> CLOSED）和奖金入账在同一事务内，
//    已结赛的大赛重复加冕返回 ErrInvalidStateTransition，奖金绝不会发两次
func (s *CompetitionService) SelectWinner(ctx context.Context, actorID int64, competitionNo string, winnerUserID int64) (*model.Competition, error) {
	comp, err := s.competitionRepo.GetByCompetitionNo(ctx, competitionNo)
	if err != nil {
		return nil, err
	}

	if err := s.gate.RequireHost(actorID, comp); err != nil {
		return nil, err
	}

	// 获奖者必须真的报过名
	if _, err := s.competitionRepo.GetEntry(ctx, competitionNo, winnerUserID); err != nil {
		return nil, err
	}

	err = s.transfer.RunSerialized(ctx, winnerUserID, competitionNo, func(tx *gorm.DB) error {
		if err := s.competitionRepo.Close(ctx, tx, competitionNo, winnerUserID); err != nil {
			return err
		}

		remark := fmt.Sprintf("大赛奖金-%s", comp.Title)
		if _, err := s.transfer.CreditTx(ctx, tx, winnerUserID, comp.PrizePool, model.ReasonCompetitionPayout, competitionNo, remark); err != nil {
			return err
		}

		return s.writeEvent(ctx, tx, model.EventCompetitionClosed, comp)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("大赛已结赛: competitionNo=%s, winnerID=%d, prizePool=%d",
		competitionNo, winnerUserID, comp.PrizePool)

	comp.Status = model.CompetitionStatusClosed
	comp.WinnerID = &winnerUserID
	return comp, nil
}

func (s *CompetitionService) GetByCompetitionNo(ctx context.Context, competitionNo string) (*model.Competition, error) {
	return s.competitionRepo.GetByCompetitionNo(ctx, competitionNo)
}

func (s *CompetitionService) ListActive(ctx context.Context, limit int) ([]*model.Competition, error) {
	return s.competitionRepo.ListActive(ctx, limit)
}

func (s *CompetitionService) ListEntries(ctx context.Context, competitionNo string) ([]*model.CompetitionEntry, error) {
	return s.competitionRepo.ListEntries(ctx, competitionNo)
}

func (s *CompetitionService) writeEvent(ctx context.Context, tx *gorm.DB, event string, comp *model.Competition) error {
	payload := map[string]interface{}{
		"event":          event,
		"competition_no": comp.CompetitionNo,
		"host_id":        comp.HostID,
		"prize_pool":     comp.PrizePool,
		"occurred_at":    time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: comp.CompetitionNo,
		Topic:      s.cfg.Kafka.Topic.WalletEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	})
}
