package model

import (
	"time"
)

// ============================================================================
// 资金变动原因常量
// ============================================================================

const (
	ReasonDeposit           = "DEPOSIT"            // 充值到账
	ReasonWithdrawal        = "WITHDRAWAL"         // 提现扣款
	ReasonCompetitionFund   = "COMPETITION_FUND"   // 大赛奖池托管（主办方扣款）
	ReasonCompetitionPayout = "COMPETITION_PAYOUT" // 大赛奖金发放
	ReasonRefund            = "REFUND"             // 退款
)

// ============================================================================
// 账本流水实体
// ============================================================================

// LedgerEntry 钱包流水表
// 记录账户的每一笔资金变动，是对账的唯一依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水必须关联业务单号（RequestNo）—— 便于对账和幂等判定
// 3. (user_id, request_no, reason) 全局唯一 —— 同一笔业务请求
//    对同一账户、同一原因最多只会入账一次，重试天然安全
// 4. 记录交易前后余额 —— 便于校验余额一致性
type LedgerEntry struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryNo       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"entry_no"` // 流水号（全局唯一）
	UserID        int64     `gorm:"index;not null;uniqueIndex:uk_user_request_reason" json:"user_id"`
	RequestNo     string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_user_request_reason" json:"request_no"` // 关联业务单号（幂等键）
	Reason        string    `gorm:"type:varchar(32);not null;uniqueIndex:uk_user_request_reason" json:"reason"`     // 变动原因
	Delta         int64     `gorm:"not null" json:"delta"`                                                          // 金额（正数入账，负数出账）
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`                                                 // 变动前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`                                                  // 变动后余额
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`                                                // 备注
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entry"
}
