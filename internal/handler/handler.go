package handler

import (
	"errors"
	"strconv"

	"literally/internal/auth"
	"literally/internal/config"
	"literally/internal/repository"
	"literally/internal/service"
	"literally/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService     *service.AccountService
	depositService     *service.DepositService
	withdrawalService  *service.WithdrawalService
	competitionService *service.CompetitionService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		accountService:     service.NewAccountService(db),
		depositService:     service.NewDepositService(db, rdb, cfg),
		withdrawalService:  service.NewWithdrawalService(db, rdb, cfg),
		competitionService: service.NewCompetitionService(db, rdb, cfg),
	}
}

// fail 把服务层的业务错误映射成统一的业务错误码
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, repository.ErrDuplicateProof):
		response.BusinessError(c, response.CodeDuplicateProof, err.Error())
	case errors.Is(err, repository.ErrInvalidStateTransition):
		response.BusinessError(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, repository.ErrRequestNotFound):
		response.BusinessError(c, response.CodeRequestNotFound, err.Error())
	case errors.Is(err, repository.ErrDisplayNameTaken):
		response.BusinessError(c, response.CodeDisplayNameTaken, err.Error())
	case errors.Is(err, repository.ErrAlreadyEntered):
		response.BusinessError(c, response.CodeAlreadyEntered, err.Error())
	case errors.Is(err, repository.ErrCompetitionNotFound), errors.Is(err, repository.ErrEntryNotFound):
		response.BusinessError(c, response.CodeCompetitionNotFound, err.Error())
	case errors.Is(err, service.ErrNotEnoughFollowers):
		response.BusinessError(c, response.CodeNotEnoughFollowers, err.Error())
	case errors.Is(err, auth.ErrPermissionDenied):
		response.BusinessError(c, response.CodePermissionDenied, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 账户相关接口
// ============================================================

// CreateProfile 入驻建档
// POST /api/v1/account/onboard
func (h *Handler) CreateProfile(c *gin.Context) {
	var req service.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	// 只能给自己建档
	req.UserID = actorID(c)

	account, err := h.accountService.CreateProfile(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, account)
}

// CheckDisplayName 笔名可用性查询
// GET /api/v1/account/name-available?display_name=xxx
func (h *Handler) CheckDisplayName(c *gin.Context) {
	displayName := c.Query("display_name")
	if displayName == "" {
		response.ParamError(c, "display_name 参数不能为空")
		return
	}

	available, err := h.accountService.CheckDisplayName(c.Request.Context(), displayName)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"display_name": displayName,
		"available":    available,
	})
}

// GetBalance 查询钱包余额
// GET /api/v1/account/balance
func (h *Handler) GetBalance(c *gin.Context) {
	account, err := h.accountService.GetAccount(c.Request.Context(), actorID(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":        account.UserID,
		"display_name":   account.DisplayName,
		"balance":        account.Balance,
		"follower_count": account.FollowerCount,
	})
}

// ListLedger 查询资金明细
// GET /api/v1/account/ledger?page=1&page_size=10
func (h *Handler) ListLedger(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	entries, total, err := h.accountService.ListLedger(c.Request.Context(), actorID(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 充值相关接口
// ============================================================

// SubmitDeposit 提交充值凭证
// POST /api/v1/deposit/submit
func (h *Handler) SubmitDeposit(c *gin.Context) {
	var req service.SubmitDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.UserID = actorID(c)

	deposit, err := h.depositService.SubmitDeposit(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, deposit)
}

// ListMyDeposits 查询本人充值申请
// GET /api/v1/deposit/list?page=1&page_size=10
func (h *Handler) ListMyDeposits(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	deposits, total, err := h.depositService.ListByUserID(c.Request.Context(), actorID(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      deposits,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 提现相关接口
// ============================================================

// SubmitWithdrawal 提交提现申请
// POST /api/v1/withdrawal/submit
func (h *Handler) SubmitWithdrawal(c *gin.Context) {
	var req service.SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.UserID = actorID(c)

	withdrawal, err := h.withdrawalService.SubmitWithdrawal(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, withdrawal)
}

// ListMyWithdrawals 查询本人提现申请
// GET /api/v1/withdrawal/list?page=1&page_size=10
func (h *Handler) ListMyWithdrawals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	withdrawals, total, err := h.withdrawalService.ListByUserID(c.Request.Context(), actorID(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      withdrawals,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 大赛相关接口
// ============================================================

// CreateCompetition 创建写作大赛（托管奖池）
// POST /api/v1/competition/create
func (h *Handler) CreateCompetition(c *gin.Context) {
	var req service.CreateCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.HostID = actorID(c)

	comp, err := h.competitionService.CreateCompetition(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, comp)
}

// ListCompetitions 查询进行中的大赛
// GET /api/v1/competition/list
func (h *Handler) ListCompetitions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	comps, err := h.competitionService.ListActive(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": comps})
}

// JoinCompetition 报名参赛
// POST /api/v1/competition/join
func (h *Handler) JoinCompetition(c *gin.Context) {
	var req service.JoinCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.UserID = actorID(c)

	entry, err := h.competitionService.JoinCompetition(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, entry)
}

// ListEntries 查询大赛参赛名单
// GET /api/v1/competition/entries?competition_no=xxx
func (h *Handler) ListEntries(c *gin.Context) {
	competitionNo := c.Query("competition_no")
	if competitionNo == "" {
		response.ParamError(c, "competition_no 参数不能为空")
		return
	}

	entries, err := h.competitionService.ListEntries(c.Request.Context(), competitionNo)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": entries})
}

// SelectWinnerRequest 结赛请求
type SelectWinnerRequest struct {
	CompetitionNo string `json:"competition_no" binding:"required"`
	WinnerUserID  int64  `json:"winner_user_id" binding:"required"`
}

// SelectWinner 加冕获奖者并发放奖金
// POST /api/v1/competition/winner
//
// 【关键点】只有大赛主办方本人能结赛；
// 已结赛的大赛重复加冕会被拒绝，奖金不会发两次
func (h *Handler) SelectWinner(c *gin.Context) {
	var req SelectWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	comp, err := h.competitionService.SelectWinner(c.Request.Context(), actorID(c), req.CompetitionNo, req.WinnerUserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, comp)
}

// ============================================================
// 管理台接口（授权闸门在服务层校验 ADMIN 角色）
// ============================================================

// ListPendingDeposits 待核验充值列表
// GET /api/v1/admin/deposits/pending
func (h *Handler) ListPendingDeposits(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	deposits, err := h.depositService.ListPending(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": deposits})
}

// AdminRequestNo 管理台审批请求体
type AdminRequestNo struct {
	RequestNo string `json:"request_no" binding:"required"`
}

// ApproveDeposit 核验充值并入账
// POST /api/v1/admin/deposits/approve
func (h *Handler) ApproveDeposit(c *gin.Context) {
	var req AdminRequestNo
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	deposit, err := h.depositService.ApproveDeposit(c.Request.Context(), actorID(c), req.RequestNo)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, deposit)
}

// RejectDeposit 驳回充值申请
// POST /api/v1/admin/deposits/reject
func (h *Handler) RejectDeposit(c *gin.Context) {
	var req AdminRequestNo
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.depositService.RejectDeposit(c.Request.Context(), actorID(c), req.RequestNo); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "充值申请已驳回"})
}

// ListPendingWithdrawals 待审批提现列表
// GET /api/v1/admin/withdrawals/pending
func (h *Handler) ListPendingWithdrawals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	withdrawals, err := h.withdrawalService.ListPending(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": withdrawals})
}

// ApproveWithdrawal 审批提现（扣款并进入打款流程）
// POST /api/v1/admin/withdrawals/approve
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	var req AdminRequestNo
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	withdrawal, err := h.withdrawalService.ApproveWithdrawal(c.Request.Context(), actorID(c), req.RequestNo)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, withdrawal)
}

// CompleteWithdrawal 确认链上打款完成
// POST /api/v1/admin/withdrawals/complete
func (h *Handler) CompleteWithdrawal(c *gin.Context) {
	var req AdminRequestNo
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawalService.CompleteWithdrawal(c.Request.Context(), actorID(c), req.RequestNo); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "提现已完成"})
}

// RejectWithdrawal 驳回提现申请
// POST /api/v1/admin/withdrawals/reject
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	var req AdminRequestNo
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawalService.RejectWithdrawal(c.Request.Context(), actorID(c), req.RequestNo); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "提现申请已驳回"})
}
