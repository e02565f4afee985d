package service

import (
	"context"
	"testing"

	"literally/internal/auth"
	"literally/internal/model"
	"literally/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = int64(100)

func TestDepositService_SubmitAndApprove(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewDepositService(db, rdb, cfg)

	seedAccount(t, db, adminID, 0, asAdmin)
	seedAccount(t, db, 1, 1000)

	deposit, err := svc.SubmitDeposit(ctx, &SubmitDepositRequest{
		UserID: 1,
		Amount: 500,
		TxHash: "tx123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DepositStatusPending, deposit.Status)

	approved, err := svc.ApproveDeposit(ctx, adminID, deposit.RequestNo)
	require.NoError(t, err)
	assert.Equal(t, model.DepositStatusCompleted, approved.Status)

	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 1).First(&account).Error)
	assert.Equal(t, int64(1500), account.Balance)

	// 审批动作产生了钱包事件
	var outboxCount int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).Where("message_key = ?", deposit.RequestNo).Count(&outboxCount).Error)
	assert.Equal(t, int64(1), outboxCount)
}

// 重复审批（模拟管理员双击 / 请求重试）只会入账一次
func TestDepositService_ApproveTwice(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewDepositService(db, rdb, cfg)

	seedAccount(t, db, adminID, 0, asAdmin)
	seedAccount(t, db, 2, 1000)

	deposit, err := svc.SubmitDeposit(ctx, &SubmitDepositRequest{
		UserID: 2,
		Amount: 500,
		TxHash: "tx-twice",
	})
	require.NoError(t, err)

	_, err = svc.ApproveDeposit(ctx, adminID, deposit.RequestNo)
	require.NoError(t, err)

	_, err = svc.ApproveDeposit(ctx, adminID, deposit.RequestNo)
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)

	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 2).First(&account).Error)
	assert.Equal(t, int64(1500), account.Balance)

	var entryCount int64
	require.NoError(t, db.Model(&model.LedgerEntry{}).Where("user_id = ?", 2).Count(&entryCount).Error)
	assert.Equal(t, int64(1), entryCount)
}

func TestDepositService_DuplicateProof(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewDepositService(db, rdb, cfg)

	seedAccount(t, db, 3, 0)
	seedAccount(t, db, 4, 0)

	_, err := svc.SubmitDeposit(ctx, &SubmitDepositRequest{UserID: 3, Amount: 100, TxHash: "txABC"})
	require.NoError(t, err)

	// 另一个用户复用同一个转账哈希也必须被拒绝
	_, err = svc.SubmitDeposit(ctx, &SubmitDepositRequest{UserID: 4, Amount: 100, TxHash: "txABC"})
	require.ErrorIs(t, err, repository.ErrDuplicateProof)
}

func TestDepositService_Reject(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewDepositService(db, rdb, cfg)

	seedAccount(t, db, adminID, 0, asAdmin)
	seedAccount(t, db, 5, 0)

	deposit, err := svc.SubmitDeposit(ctx, &SubmitDepositRequest{UserID: 5, Amount: 100, TxHash: "tx-bad"})
	require.NoError(t, err)

	require.NoError(t, svc.RejectDeposit(ctx, adminID, deposit.RequestNo))

	// 驳回后不能再通过（终态不可流转）
	_, err = svc.ApproveDeposit(ctx, adminID, deposit.RequestNo)
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)

	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 5).First(&account).Error)
	assert.Equal(t, int64(0), account.Balance)
}

func TestDepositService_ApproveRequiresAdmin(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewDepositService(db, rdb, cfg)

	seedAccount(t, db, 6, 0)
	seedAccount(t, db, 7, 0)

	deposit, err := svc.SubmitDeposit(ctx, &SubmitDepositRequest{UserID: 6, Amount: 100, TxHash: "tx-auth"})
	require.NoError(t, err)

	// 普通用户（哪怕是申请人自己）不能审批
	_, err = svc.ApproveDeposit(ctx, 7, deposit.RequestNo)
	require.ErrorIs(t, err, auth.ErrPermissionDenied)
	_, err = svc.ApproveDeposit(ctx, 6, deposit.RequestNo)
	require.ErrorIs(t, err, auth.ErrPermissionDenied)

	// 未授权调用不产生任何副作用
	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 6).First(&account).Error)
	assert.Equal(t, int64(0), account.Balance)

	fresh, err := svc.GetByRequestNo(ctx, deposit.RequestNo)
	require.NoError(t, err)
	assert.Equal(t, model.DepositStatusPending, fresh.Status)
}
