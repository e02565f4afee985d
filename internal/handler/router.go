package handler

import (
	"literally/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组（所有接口都要求上游网关注入操作者身份）
	api := r.Group("/api/v1")
	api.Use(ActorMiddleware())
	{
		// 账户相关
		account := api.Group("/account")
		{
			account.POST("/onboard", h.CreateProfile)
			account.GET("/name-available", h.CheckDisplayName)
			account.GET("/balance", h.GetBalance)
			account.GET("/ledger", h.ListLedger)
		}

		// 充值相关
		deposit := api.Group("/deposit")
		{
			deposit.POST("/submit", h.SubmitDeposit)
			deposit.GET("/list", h.ListMyDeposits)
		}

		// 提现相关
		withdrawal := api.Group("/withdrawal")
		{
			withdrawal.POST("/submit", h.SubmitWithdrawal)
			withdrawal.GET("/list", h.ListMyWithdrawals)
		}

		// 大赛相关
		competition := api.Group("/competition")
		{
			competition.POST("/create", h.CreateCompetition)
			competition.GET("/list", h.ListCompetitions)
			competition.POST("/join", h.JoinCompetition)
			competition.GET("/entries", h.ListEntries)
			competition.POST("/winner", h.SelectWinner)
		}

		// 管理台（ADMIN 角色校验在服务层的授权闸门完成）
		admin := api.Group("/admin")
		{
			admin.GET("/deposits/pending", h.ListPendingDeposits)
			admin.POST("/deposits/approve", h.ApproveDeposit)
			admin.POST("/deposits/reject", h.RejectDeposit)
			admin.GET("/withdrawals/pending", h.ListPendingWithdrawals)
			admin.POST("/withdrawals/approve", h.ApproveWithdrawal)
			admin.POST("/withdrawals/complete", h.CompleteWithdrawal)
			admin.POST("/withdrawals/reject", h.RejectWithdrawal)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
