package auth

import (
	"context"
	"testing"

	"literally/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Account{}))
	return db
}

func TestGate_RequireAdmin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	gate := NewGate(db)

	require.NoError(t, db.Create(&model.Account{
		UserID: 1, DisplayName: "普通用户", Role: model.RoleUser,
	}).Error)
	require.NoError(t, db.Create(&model.Account{
		UserID: 2, DisplayName: "管理员", Role: model.RoleAdmin,
	}).Error)

	assert.ErrorIs(t, gate.RequireAdmin(ctx, 1), ErrPermissionDenied)
	assert.NoError(t, gate.RequireAdmin(ctx, 2))

	// 不存在的账户按无权处理，不泄露账户是否存在
	assert.ErrorIs(t, gate.RequireAdmin(ctx, 999), ErrPermissionDenied)
}

func TestGate_RequireHost(t *testing.T) {
	db := newTestDB(t)
	gate := NewGate(db)

	comp := &model.Competition{CompetitionNo: "CMP001", HostID: 7}

	assert.NoError(t, gate.RequireHost(7, comp))
	assert.ErrorIs(t, gate.RequireHost(8, comp), ErrPermissionDenied)
	assert.ErrorIs(t, gate.RequireHost(7, nil), ErrPermissionDenied)
}
