package service

import (
	"context"
	"testing"

	"literally/internal/model"
	"literally/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawalService_SubmitInsufficientBalance(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewWithdrawalService(db, rdb, cfg)

	seedAccount(t, db, 10, 100)

	_, err := svc.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		UserID:        10,
		Amount:        200,
		WalletAddress: "0xabc",
		Network:       "Polygon",
	})
	require.ErrorIs(t, err, repository.ErrBalanceNotEnough)
}

func TestWithdrawalService_ApproveAndComplete(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewWithdrawalService(db, rdb, cfg)

	seedAccount(t, db, adminID, 0, asAdmin)
	seedAccount(t, db, 11, 1000)

	withdrawal, err := svc.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		UserID:        11,
		Amount:        300,
		WalletAddress: "0xdef",
		Network:       "TRC20",
	})
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusPending, withdrawal.Status)

	approved, err := svc.ApproveWithdrawal(ctx, adminID, withdrawal.RequestNo)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusProcessing, approved.Status)

	// 审批即扣款
	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 11).First(&account).Error)
	assert.Equal(t, int64(700), account.Balance)

	require.NoError(t, svc.CompleteWithdrawal(ctx, adminID, withdrawal.RequestNo))

	fresh, err := svc.GetByRequestNo(ctx, withdrawal.RequestNo)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusCompleted, fresh.Status)

	// 完成确认不再扣款
	require.NoError(t, db.Where("user_id = ?", 11).First(&account).Error)
	assert.Equal(t, int64(700), account.Balance)
}

// 重复审批只扣一次款
func TestWithdrawalService_ApproveTwice(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewWithdrawalService(db, rdb, cfg)

	seedAccount(t, db, adminID, 0, asAdmin)
	seedAccount(t, db, 12, 1000)

	withdrawal, err := svc.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		UserID:        12,
		Amount:        400,
		WalletAddress: "0x012",
		Network:       "ERC20",
	})
	require.NoError(t, err)

	_, err = svc.ApproveWithdrawal(ctx, adminID, withdrawal.RequestNo)
	require.NoError(t, err)

	_, err = svc.ApproveWithdrawal(ctx, adminID, withdrawal.RequestNo)
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)

	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 12).First(&account).Error)
	assert.Equal(t, int64(600), account.Balance)

	var entryCount int64
	require.NoError(t, db.Model(&model.LedgerEntry{}).Where("user_id = ?", 12).Count(&entryCount).Error)
	assert.Equal(t, int64(1), entryCount)
}

// 提交之后余额被花掉，审批时复核不通过，申请流转到 REJECTED
func TestWithdrawalService_ApproveRecheckRejects(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewWithdrawalService(db, rdb, cfg)
	transfer := NewTransferService(db, rdb, cfg)

	seedAccount(t, db, adminID, 0, asAdmin)
	seedAccount(t, db, 13, 500)

	withdrawal, err := svc.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		UserID:        13,
		Amount:        500,
		WalletAddress: "0x345",
		Network:       "Polygon",
	})
	require.NoError(t, err)

	// 提交和审批之间余额被其他业务扣走
	_, err = transfer.Debit(ctx, 13, 400, model.ReasonCompetitionFund, "CMP-DRAIN", "占用余额")
	require.NoError(t, err)

	result, err := svc.ApproveWithdrawal(ctx, adminID, withdrawal.RequestNo)
	require.ErrorIs(t, err, repository.ErrBalanceNotEnough)
	assert.Equal(t, model.WithdrawalStatusRejected, result.Status)

	// 驳回已落库，余额未动
	fresh, err := svc.GetByRequestNo(ctx, withdrawal.RequestNo)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusRejected, fresh.Status)

	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 13).First(&account).Error)
	assert.Equal(t, int64(100), account.Balance)

	// 终态申请不能再审批
	_, err = svc.ApproveWithdrawal(ctx, adminID, withdrawal.RequestNo)
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)
}

func TestWithdrawalService_RejectPending(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewWithdrawalService(db, rdb, cfg)

	seedAccount(t, db, adminID, 0, asAdmin)
	seedAccount(t, db, 14, 300)

	withdrawal, err := svc.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		UserID:        14,
		Amount:        300,
		WalletAddress: "0x678",
		Network:       "TRC20",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RejectWithdrawal(ctx, adminID, withdrawal.RequestNo))

	// 驳回发生在扣款之前，余额原样
	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 14).First(&account).Error)
	assert.Equal(t, int64(300), account.Balance)

	// 已驳回的申请不能再完成
	err = svc.CompleteWithdrawal(ctx, adminID, withdrawal.RequestNo)
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)
}

// PENDING 状态不能直接完成，必须先审批扣款
func TestWithdrawalService_CompleteRequiresProcessing(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewWithdrawalService(db, rdb, cfg)

	seedAccount(t, db, adminID, 0, asAdmin)
	seedAccount(t, db, 15, 300)

	withdrawal, err := svc.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		UserID:        15,
		Amount:        100,
		WalletAddress: "0x9ab",
		Network:       "ERC20",
	})
	require.NoError(t, err)

	err = svc.CompleteWithdrawal(ctx, adminID, withdrawal.RequestNo)
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)
}
