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

type WithdrawalService struct {
	db             *gorm.DB
	redisClient    *redis.Client
	cfg            *config.Config
	gate           *auth.Gate
	transfer       *TransferService
	accountRepo    *repository.AccountRepository
	withdrawalRepo *repository.WithdrawalRepository
	outboxRepo     *repository.OutboxRepository
}

func NewWithdrawalService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *WithdrawalService {
	return &WithdrawalService{
		db:             db,
		redisClient:    redisClient,
		cfg:            cfg,
		gate:           auth.NewGate(db),
		transfer:       NewTransferService(db, redisClient, cfg),
		accountRepo:    repository.NewAccountRepository(db),
		withdrawalRepo: repository.NewWithdrawalRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
	}
}

type SubmitWithdrawalRequest struct {
	UserID        int64  `json:"user_id" binding:"required"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	WalletAddress string `json:"wallet_address" binding:"required"`
	Network       string `json:"network" binding:"required"`
}

// SubmitWithdrawal 提交提现申请
//
// 【关键点】这里只做乐观校验，不冻结余额：
// 提交到审批之间余额可能继续变动，审批时会在扣款事务内重新校验
func (s *WithdrawalService) SubmitWithdrawal(ctx context.Context, req *SubmitWithdrawalRequest) (*model.WithdrawalRequest, error) {
	account, err := s.accountRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if account.Balance < req.Amount {
		return nil, repository.ErrBalanceNotEnough
	}

	withdrawal := &model.WithdrawalRequest{
		RequestNo:     idgen.GenerateWithdrawalNo(),
		UserID:        req.UserID,
		Amount:        req.Amount,
		WalletAddress: req.WalletAddress,
		Network:       req.Network,
		Status:        model.WithdrawalStatusPending,
	}
	if err := s.withdrawalRepo.Create(ctx, nil, withdrawal); err != nil {
		return nil, fmt.Errorf("创建提现申请失败: %w", err)
	}

	log.Printf("提现申请已提交: requestNo=%s, userID=%d, amount=%d", withdrawal.RequestNo, req.UserID, req.Amount)
	return withdrawal, nil
}

// ApproveWithdrawal 管理员审批提现，扣款并转入打款流程
//
// 【关键点】余额必须在扣款事务内重新校验（提交后余额可能已被花掉）：
// - 余额充足：扣款 + PENDING -> PROCESSING，等待链上打款
// - 余额不足：申请直接流转到终态 REJECTED，不会无限期挂在 PENDING，
//   同时向调用方返回 ErrBalanceNotEnough
func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, actorID int64, requestNo string) (*model.WithdrawalRequest, error) {
	if err := s.gate.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	withdrawal, err := s.withdrawalRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return nil, err
	}

	rejected := false
	err = s.transfer.RunSerialized(ctx, withdrawal.UserID, requestNo, func(tx *gorm.DB) error {
		rejected = false

		// 先确认仍是 PENDING（终态一律拒绝，防止重复审批二次扣款）
		current, err := s.withdrawalRepo.GetByRequestNoTx(ctx, tx, requestNo)
		if err != nil {
			return err
		}
		if current.Status != model.WithdrawalStatusPending {
			return repository.ErrInvalidStateTransition
		}

		remark := fmt.Sprintf("提现扣款-%s-%s", withdrawal.Network, withdrawal.WalletAddress)
		_, err = s.transfer.DebitTx(ctx, tx, withdrawal.UserID, withdrawal.Amount, model.ReasonWithdrawal, requestNo, remark)
		if errors.Is(err, repository.ErrBalanceNotEnough) {
			// 复核不通过：走终态 REJECTED（条件更新没有发生，余额未动）
			if err := s.withdrawalRepo.UpdateStatus(ctx, tx, requestNo, model.WithdrawalStatusPending, model.WithdrawalStatusRejected); err != nil {
				return err
			}
			rejected = true
			return s.writeEvent(ctx, tx, model.EventWithdrawalRejected, withdrawal)
		}
		if err != nil {
			return err
		}

		if err := s.withdrawalRepo.UpdateStatus(ctx, tx, requestNo, model.WithdrawalStatusPending, model.WithdrawalStatusProcessing); err != nil {
			return err
		}
		return s.writeEvent(ctx, tx, model.EventWithdrawalProcessing, withdrawal)
	})
	if err != nil {
		return nil, err
	}

	if rejected {
		log.Printf("提现复核余额不足，申请已驳回: requestNo=%s, userID=%d, amount=%d",
			requestNo, withdrawal.UserID, withdrawal.Amount)
		withdrawal.Status = model.WithdrawalStatusRejected
		return withdrawal, repository.ErrBalanceNotEnough
	}

	log.Printf("提现审批通过，进入打款: requestNo=%s, userID=%d, amount=%d, admin=%d",
		requestNo, withdrawal.UserID, withdrawal.Amount, actorID)
	withdrawal.Status = model.WithdrawalStatusProcessing
	return withdrawal, nil
}

// CompleteWithdrawal 链上打款确认完成，申请流转到终态
func (s *WithdrawalService) CompleteWithdrawal(ctx context.Context, actorID int64, requestNo string) error {
	if err := s.gate.RequireAdmin(ctx, actorID); err != nil {
		return err
	}

	withdrawal, err := s.withdrawalRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawalRepo.UpdateStatus(ctx, tx, requestNo, model.WithdrawalStatusProcessing, model.WithdrawalStatusCompleted); err != nil {
			return err
		}
		return s.writeEvent(ctx, tx, model.EventWithdrawalCompleted, withdrawal)
	})
	if err != nil {
		return err
	}

	log.Printf("提现已完成: requestNo=%s, admin=%d", requestNo, actorID)
	return nil
}

// RejectWithdrawal 管理员驳回提现申请（只能驳回 PENDING，此时尚未扣款）
func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, actorID int64, requestNo string) error {
	if err := s.gate.RequireAdmin(ctx, actorID); err != nil {
		return err
	}

	withdrawal, err := s.withdrawalRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawalRepo.UpdateStatus(ctx, tx, requestNo, model.WithdrawalStatusPending, model.WithdrawalStatusRejected); err != nil {
			return err
		}
		return s.writeEvent(ctx, tx, model.EventWithdrawalRejected, withdrawal)
	})
	if err != nil {
		return err
	}

	log.Printf("提现申请已驳回: requestNo=%s, admin=%d", requestNo, actorID)
	return nil
}

func (s *WithdrawalService) GetByRequestNo(ctx context.Context, requestNo string) (*model.WithdrawalRequest, error) {
	return s.withdrawalRepo.GetByRequestNo(ctx, requestNo)
}

// ListPending 管理台待审批提现列表
func (s *WithdrawalService) ListPending(ctx context.Context, limit int) ([]*model.WithdrawalRequest, error) {
	return s.withdrawalRepo.ListPending(ctx, limit)
}

func (s *WithdrawalService) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.WithdrawalRequest, int64, error) {
	return s.withdrawalRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (s *WithdrawalService) writeEvent(ctx context.Context, tx *gorm.DB, event string, withdrawal *model.WithdrawalRequest) error {
	payload := map[string]interface{}{
		"event":       event,
		"request_no":  withdrawal.RequestNo,
		"user_id":     withdrawal.UserID,
		"amount":      withdrawal.Amount,
		"network":     withdrawal.Network,
		"occurred_at": time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: withdrawal.RequestNo,
		Topic:      s.cfg.Kafka.Topic.WalletEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	})
}
