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

func TestCompetitionService_CreateRequiresFollowers(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewCompetitionService(db, rdb, cfg)

	seedAccount(t, db, 20, 1000, withFollowers(999))

	_, err := svc.CreateCompetition(ctx, &CreateCompetitionRequest{
		HostID:    20,
		Title:     "短篇小说赛",
		PrizePool: 500,
	})
	require.ErrorIs(t, err, ErrNotEnoughFollowers)

	// 门槛没过，一分钱都不该动
	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 20).First(&account).Error)
	assert.Equal(t, int64(1000), account.Balance)
}

func TestCompetitionService_CreateEscrowsPrizePool(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewCompetitionService(db, rdb, cfg)

	seedAccount(t, db, 21, 500, withFollowers(5000))

	comp, err := svc.CreateCompetition(ctx, &CreateCompetitionRequest{
		HostID:    21,
		Title:     "散文大赛",
		PrizePool: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CompetitionStatusActive, comp.Status)

	var account model.Account
	require.NoError(t, db.Where("user_id = ?", 21).First(&account).Error)
	assert.Equal(t, int64(0), account.Balance)

	// 余额已归零，再办一场必须整体失败：不扣款也不建赛
	_, err = svc.CreateCompetition(ctx, &CreateCompetitionRequest{
		HostID:    21,
		Title:     "诗歌大赛",
		PrizePool: 100,
	})
	require.ErrorIs(t, err, repository.ErrBalanceNotEnough)

	var compCount int64
	require.NoError(t, db.Model(&model.Competition{}).Where("host_id = ?", 21).Count(&compCount).Error)
	assert.Equal(t, int64(1), compCount)
}

func TestCompetitionService_JoinOnce(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewCompetitionService(db, rdb, cfg)

	seedAccount(t, db, 22, 1000, withFollowers(2000))
	seedAccount(t, db, 23, 0)

	comp, err := svc.CreateCompetition(ctx, &CreateCompetitionRequest{
		HostID:    22,
		Title:     "微型小说赛",
		PrizePool: 300,
	})
	require.NoError(t, err)

	_, err = svc.JoinCompetition(ctx, &JoinCompetitionRequest{
		CompetitionNo: comp.CompetitionNo,
		UserID:        23,
		SubmissionRef: "post-1001",
	})
	require.NoError(t, err)

	_, err = svc.JoinCompetition(ctx, &JoinCompetitionRequest{
		CompetitionNo: comp.CompetitionNo,
		UserID:        23,
		SubmissionRef: "post-1002",
	})
	require.ErrorIs(t, err, repository.ErrAlreadyEntered)

	entries, err := svc.ListEntries(ctx, comp.CompetitionNo)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCompetitionService_SelectWinner(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewCompetitionService(db, rdb, cfg)

	seedAccount(t, db, 24, 1000, withFollowers(3000))
	seedAccount(t, db, 25, 100)
	seedAccount(t, db, 26, 0)

	comp, err := svc.CreateCompetition(ctx, &CreateCompetitionRequest{
		HostID:    24,
		Title:     "连载小说赛",
		PrizePool: 600,
	})
	require.NoError(t, err)

	_, err = svc.JoinCompetition(ctx, &JoinCompetitionRequest{
		CompetitionNo: comp.CompetitionNo, UserID: 25, SubmissionRef: "post-1",
	})
	require.NoError(t, err)

	// 非主办方不能加冕
	_, err = svc.SelectWinner(ctx, 26, comp.CompetitionNo, 25)
	require.ErrorIs(t, err, auth.ErrPermissionDenied)

	// 没报名的人不能获奖
	_, err = svc.SelectWinner(ctx, 24, comp.CompetitionNo, 26)
	require.ErrorIs(t, err, repository.ErrEntryNotFound)

	closed, err := svc.SelectWinner(ctx, 24, comp.CompetitionNo, 25)
	require.NoError(t, err)
	assert.Equal(t, model.CompetitionStatusClosed, closed.Status)
	require.NotNil(t, closed.WinnerID)
	assert.Equal(t, int64(25), *closed.WinnerID)

	var winner model.Account
	require.NoError(t, db.Where("user_id = ?", 25).First(&winner).Error)
	assert.Equal(t, int64(700), winner.Balance)

	// 结赛后不能再报名
	_, err = svc.JoinCompetition(ctx, &JoinCompetitionRequest{
		CompetitionNo: comp.CompetitionNo, UserID: 26, SubmissionRef: "post-2",
	})
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)
}

// 重复加冕被结赛 CAS 拦下，奖金绝不发两次
func TestCompetitionService_SelectWinnerTwice(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	ctx := context.Background()
	svc := NewCompetitionService(db, rdb, cfg)

	seedAccount(t, db, 27, 1000, withFollowers(1500))
	seedAccount(t, db, 28, 0)
	seedAccount(t, db, 29, 0)

	comp, err := svc.CreateCompetition(ctx, &CreateCompetitionRequest{
		HostID:    27,
		Title:     "书评大赛",
		PrizePool: 400,
	})
	require.NoError(t, err)

	for _, uid := range []int64{28, 29} {
		_, err = svc.JoinCompetition(ctx, &JoinCompetitionRequest{
			CompetitionNo: comp.CompetitionNo, UserID: uid,
		})
		require.NoError(t, err)
	}

	_, err = svc.SelectWinner(ctx, 27, comp.CompetitionNo, 28)
	require.NoError(t, err)

	// 同一获奖者重试 / 换人加冕都不行
	_, err = svc.SelectWinner(ctx, 27, comp.CompetitionNo, 28)
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)
	_, err = svc.SelectWinner(ctx, 27, comp.CompetitionNo, 29)
	require.ErrorIs(t, err, repository.ErrInvalidStateTransition)

	var winner model.Account
	require.NoError(t, db.Where("user_id = ?", 28).First(&winner).Error)
	assert.Equal(t, int64(400), winner.Balance)

	var other model.Account
	require.NoError(t, db.Where("user_id = ?", 29).First(&other).Error)
	assert.Equal(t, int64(0), other.Balance)
}
