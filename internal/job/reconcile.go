package job

import (
	"context"
	"log"
	"time"

	"literally/internal/config"
	"literally/internal/repository"

	"gorm.io/gorm"
)

// ReconcileJob 对账任务
//
// 周期性校验核心不变式：每个账户的当前余额必须等于其全部流水的净额。
// 余额只能经转账引擎变动、流水只追加不改写，这条等式在正常情况下恒成立；
// 一旦出现偏差说明有代码绕过了引擎直改余额，必须立刻告警排查
type ReconcileJob struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
	cfg         *config.Config
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
}

func NewReconcileJob(db *gorm.DB, cfg *config.Config) *ReconcileJob {
	interval := time.Duration(cfg.Business.ReconcileIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReconcileJob{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		interval:    interval,
		batchSize:   200,
	}
}

func (j *ReconcileJob) Start(ctx context.Context) {
	log.Println("[ReconcileJob] 对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ReconcileJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ReconcileJob] 任务停止")
			return
		case <-ticker.C:
			j.reconcileAll(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *ReconcileJob) reconcileAll(ctx context.Context) {
	offset := 0
	checked := 0
	mismatched := 0

	for {
		accounts, err := j.accountRepo.ListPage(ctx, offset, j.batchSize)
		if err != nil {
			log.Printf("[ReconcileJob] 查询账户失败: %v", err)
			return
		}
		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			sum, err := j.ledgerRepo.SumDeltaByUserID(ctx, account.UserID)
			if err != nil {
				log.Printf("[ReconcileJob] 汇总流水失败: userID=%d, err=%v", account.UserID, err)
				continue
			}

			checked++
			if sum != account.Balance {
				mismatched++
				// 正在进行中的事务可能让单次比对出现瞬时偏差，
				// 连续多轮都对不上的账户才需要人工介入
				log.Printf("[ReconcileJob] 账实不符: userID=%d, balance=%d, ledgerSum=%d, diff=%d",
					account.UserID, account.Balance, sum, account.Balance-sum)
			}

			if account.Balance < 0 {
				log.Printf("[ReconcileJob] 发现负余额账户: userID=%d, balance=%d", account.UserID, account.Balance)
			}
		}

		offset += len(accounts)
	}

	if mismatched > 0 {
		log.Printf("[ReconcileJob] 本轮对账完成: 检查 %d 个账户, %d 个账实不符", checked, mismatched)
	}
}
