package service

import (
	"strconv"
	"testing"

	"literally/internal/config"
	"literally/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestEnv 搭建测试环境：内存 SQLite + miniredis
// SQLite 连接数限制为 1，保证事务串行执行
func newTestEnv(t *testing.T) (*gorm.DB, *redis.Client, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Account{},
		&model.LedgerEntry{},
		&model.DepositRequest{},
		&model.WithdrawalRequest{},
		&model.Competition{},
		&model.CompetitionEntry{},
		&model.OutboxMessage{},
	))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{WalletEvents: "wallet_events"},
		},
		Business: config.BusinessConfig{
			MinHostFollowers: 1000,
			MaxRetryCount:    3,
		},
	}

	return db, rdb, cfg
}

// seedAccount 预置测试账户（测试夹具直接落库，业务代码不允许这样改余额）
func seedAccount(t *testing.T, db *gorm.DB, userID, balance int64, opts ...func(*model.Account)) *model.Account {
	t.Helper()

	account := &model.Account{
		UserID:      userID,
		DisplayName: displayNameFor(userID),
		Role:        model.RoleUser,
		Balance:     balance,
	}
	for _, opt := range opts {
		opt(account)
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func asAdmin(a *model.Account) {
	a.Role = model.RoleAdmin
}

func withFollowers(count int64) func(*model.Account) {
	return func(a *model.Account) {
		a.FollowerCount = count
	}
}

func displayNameFor(userID int64) string {
	return "writer-" + strconv.FormatInt(userID, 10)
}
