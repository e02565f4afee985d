package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"literally/internal/config"
	"literally/internal/infrastructure/lock"
	"literally/internal/model"
	"literally/internal/repository"
	"literally/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ============================================================================
// 转账引擎
// ============================================================================
//
// 平台上所有余额变动的唯一入口：充值入账、提现扣款、奖池托管、奖金发放
// 都必须经过这里。调用方（审批服务、大赛服务）不允许直接改余额字段。
//
// 三条铁律：
// 1. 原子性：余额变更和流水落库在同一数据库事务内，要么都成功要么都失败
// 2. 幂等性：同一 (userID, requestNo, reason) 最多入账一次，
//    重复调用返回已有流水，不会二次扣款/入账——审批重试因此是安全的
// 3. 并发安全：余额校验和扣减在同一条 UPDATE 里完成（见 AccountRepository.Deduct），
//    外加按账户维度的分布式锁串行化，余额永远不会被扣成负数
//
// ============================================================================

var ErrInvalidAmount = errors.New("金额必须大于0")

const (
	lockRetryInterval = 50 * time.Millisecond
	lockMaxRetries    = 200
)

type TransferService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
}

func NewTransferService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *TransferService {
	return &TransferService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
	}
}

// Credit 入账（独立事务）
func (s *TransferService) Credit(ctx context.Context, userID, amount int64, reason, requestNo, remark string) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var entry *model.LedgerEntry
	err := s.RunSerialized(ctx, userID, requestNo, func(tx *gorm.DB) error {
		var err error
		entry, err = s.CreditTx(ctx, tx, userID, amount, reason, requestNo, remark)
		return err
	})
	return entry, err
}

// Debit 扣款（独立事务），余额不足返回 repository.ErrBalanceNotEnough
func (s *TransferService) Debit(ctx context.Context, userID, amount int64, reason, requestNo, remark string) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var entry *model.LedgerEntry
	err := s.RunSerialized(ctx, userID, requestNo, func(tx *gorm.DB) error {
		var err error
		entry, err = s.DebitTx(ctx, tx, userID, amount, reason, requestNo, remark)
		return err
	})
	return entry, err
}

// Transfer 账户间转账：扣款和入账在同一事务内，要么都发生要么都不发生
//
// 【关键点】两把钱包锁按 userID 升序获取，
// A->B 和 B->A 并发时不会交叉持锁造成死锁
func (s *TransferService) Transfer(ctx context.Context, fromUserID, toUserID, amount int64, reason, requestNo, remark string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	firstID, secondID := fromUserID, toUserID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	firstLock := lock.NewWalletLock(s.redisClient, firstID, requestNo)
	if err := firstLock.Lock(ctx, lockRetryInterval, lockMaxRetries); err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer firstLock.Unlock(ctx)

	secondLock := lock.NewWalletLock(s.redisClient, secondID, requestNo)
	if err := secondLock.Lock(ctx, lockRetryInterval, lockMaxRetries); err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer secondLock.Unlock(ctx)

	return s.runWithRetry(ctx, func(tx *gorm.DB) error {
		if _, err := s.DebitTx(ctx, tx, fromUserID, amount, reason, requestNo, remark); err != nil {
			return err
		}
		_, err := s.CreditTx(ctx, tx, toUserID, amount, reason, requestNo, remark)
		return err
	})
}

// CreditTx 在调用方事务内入账
// 审批类业务要把"状态流转 + 入账 + 事务消息"绑成一个事务时使用
func (s *TransferService) CreditTx(ctx context.Context, tx *gorm.DB, userID, amount int64, reason, requestNo, remark string) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.applyTx(ctx, tx, userID, amount, reason, requestNo, remark)
}

// DebitTx 在调用方事务内扣款
func (s *TransferService) DebitTx(ctx context.Context, tx *gorm.DB, userID, amount int64, reason, requestNo, remark string) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.applyTx(ctx, tx, userID, -amount, reason, requestNo, remark)
}

// applyTx 在事务内应用一笔余额变动（delta 正入负出）
func (s *TransferService) applyTx(ctx context.Context, tx *gorm.DB, userID, delta int64, reason, requestNo, remark string) (*model.LedgerEntry, error) {
	// 幂等探针：同一业务请求已入账过，直接返回已有流水
	existing, err := s.ledgerRepo.GetByRequestNoAndReason(ctx, tx, userID, requestNo, reason)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	account, err := s.accountRepo.GetByUserIDTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if delta < 0 {
		if err := s.accountRepo.Deduct(ctx, tx, userID, -delta, account.Version); err != nil {
			return nil, err
		}
	} else {
		if err := s.accountRepo.Increase(ctx, tx, userID, delta, account.Version); err != nil {
			return nil, err
		}
	}

	entry := &model.LedgerEntry{
		EntryNo:       idgen.GenerateEntryNo(),
		UserID:        userID,
		RequestNo:     requestNo,
		Reason:        reason,
		Delta:         delta,
		BalanceBefore: account.Balance,
		BalanceAfter:  account.Balance + delta,
		Remark:        remark,
	}
	if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("记录流水失败: %w", err)
	}

	return entry, nil
}

// RunSerialized 持有账户钱包锁执行 fn，乐观锁冲突时整个事务重试
//
// 审批类服务用它把自己的状态流转和转账引擎的 Tx 方法绑进同一事务：
//
//	s.transfer.RunSerialized(ctx, userID, requestNo, func(tx *gorm.DB) error {
//	    // 状态 CAS + CreditTx/DebitTx + 事务消息
//	})
func (s *TransferService) RunSerialized(ctx context.Context, userID int64, token string, fn func(tx *gorm.DB) error) error {
	walletLock := lock.NewWalletLock(s.redisClient, userID, token)
	if err := walletLock.Lock(ctx, lockRetryInterval, lockMaxRetries); err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer walletLock.Unlock(ctx)

	return s.runWithRetry(ctx, fn)
}

func (s *TransferService) runWithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	maxRetries := s.cfg.Business.MaxRetryCount
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, repository.ErrOptimisticLock) {
			return err
		}
		// 版本冲突说明有并发事务刚提交，重读重做
	}
	return err
}
