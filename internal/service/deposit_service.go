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

type DepositService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	gate        *auth.Gate
	transfer    *TransferService
	accountRepo *repository.AccountRepository
	depositRepo *repository.DepositRepository
	outboxRepo  *repository.OutboxRepository
}

func NewDepositService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *DepositService {
	return &DepositService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		gate:        auth.NewGate(db),
		transfer:    NewTransferService(db, redisClient, cfg),
		accountRepo: repository.NewAccountRepository(db),
		depositRepo: repository.NewDepositRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

type SubmitDepositRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	TxHash string `json:"tx_hash" binding:"required"`
}

// SubmitDeposit 提交充值凭证
// 同一链上转账哈希只能提交一次，防止一笔转账重复入账
func (s *DepositService) SubmitDeposit(ctx context.Context, req *SubmitDepositRequest) (*model.DepositRequest, error) {
	if _, err := s.accountRepo.GetByUserID(ctx, req.UserID); err != nil {
		return nil, err
	}

	existing, err := s.depositRepo.GetByTxHash(ctx, req.TxHash)
	if err != nil {
		return nil, fmt.Errorf("查询充值申请失败: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrDuplicateProof
	}

	deposit := &model.DepositRequest{
		RequestNo: idgen.GenerateDepositNo(),
		UserID:    req.UserID,
		Amount:    req.Amount,
		TxHash:    req.TxHash,
		Status:    model.DepositStatusPending,
	}
	// tx_hash 唯一索引兜底：并发提交同一哈希时只有一个能落库
	if err := s.depositRepo.Create(ctx, nil, deposit); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, repository.ErrDuplicateProof
		}
		return nil, fmt.Errorf("创建充值申请失败: %w", err)
	}

	log.Printf("充值申请已提交: requestNo=%s, userID=%d, amount=%d", deposit.RequestNo, req.UserID, req.Amount)
	return deposit, nil
}

// ApproveDeposit 管理员核验通过，给用户入账
//
// 【关键点】状态流转、入账、流水、事务消息在同一事务内：
// - 入账失败则申请保持 PENDING，可再次审批
// - 已是终态则返回 ErrInvalidStateTransition，重复点击不会二次入账
func (s *DepositService) ApproveDeposit(ctx context.Context, actorID int64, requestNo string) (*model.DepositRequest, error) {
	if err := s.gate.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	deposit, err := s.depositRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return nil, err
	}

	err = s.transfer.RunSerialized(ctx, deposit.UserID, requestNo, func(tx *gorm.DB) error {
		// CAS：PENDING -> COMPLETED，重复审批在这里被拦下
		if err := s.depositRepo.UpdateStatus(ctx, tx, requestNo, model.DepositStatusPending, model.DepositStatusCompleted); err != nil {
			return err
		}

		remark := fmt.Sprintf("充值入账-%s", deposit.TxHash)
		if _, err := s.transfer.CreditTx(ctx, tx, deposit.UserID, deposit.Amount, model.ReasonDeposit, requestNo, remark); err != nil {
			return err
		}

		return s.writeEvent(ctx, tx, model.EventDepositCompleted, deposit)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("充值审批通过: requestNo=%s, userID=%d, amount=%d, admin=%d",
		requestNo, deposit.UserID, deposit.Amount, actorID)

	deposit.Status = model.DepositStatusCompleted
	return deposit, nil
}

// RejectDeposit 管理员驳回充值申请（凭证核验不通过）
func (s *DepositService) RejectDeposit(ctx context.Context, actorID int64, requestNo string) error {
	if err := s.gate.RequireAdmin(ctx, actorID); err != nil {
		return err
	}

	deposit, err := s.depositRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.depositRepo.UpdateStatus(ctx, tx, requestNo, model.DepositStatusPending, model.DepositStatusRejected); err != nil {
			return err
		}
		return s.writeEvent(ctx, tx, model.EventDepositRejected, deposit)
	})
	if err != nil {
		return err
	}

	log.Printf("充值申请已驳回: requestNo=%s, admin=%d", requestNo, actorID)
	return nil
}

func (s *DepositService) GetByRequestNo(ctx context.Context, requestNo string) (*model.DepositRequest, error) {
	return s.depositRepo.GetByRequestNo(ctx, requestNo)
}

// ListPending 管理台待核验充值列表
func (s *DepositService) ListPending(ctx context.Context, limit int) ([]*model.DepositRequest, error) {
	return s.depositRepo.ListPending(ctx, limit)
}

func (s *DepositService) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositRequest, int64, error) {
	return s.depositRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (s *DepositService) writeEvent(ctx context.Context, tx *gorm.DB, event string, deposit *model.DepositRequest) error {
	payload := map[string]interface{}{
		"event":       event,
		"request_no":  deposit.RequestNo,
		"user_id":     deposit.UserID,
		"amount":      deposit.Amount,
		"tx_hash":     deposit.TxHash,
		"occurred_at": time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: deposit.RequestNo,
		Topic:      s.cfg.Kafka.Topic.WalletEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	})
}
