package model

import (
	"time"
)

const (
	WithdrawalStatusPending    = "PENDING"
	WithdrawalStatusProcessing = "PROCESSING"
	WithdrawalStatusCompleted  = "COMPLETED"
	WithdrawalStatusRejected   = "REJECTED"
)

// ValidWithdrawalTransitions 提现申请状态机
//
// PENDING -> PROCESSING：管理员审批通过，余额在此刻扣减
// PENDING -> REJECTED：管理员驳回，或审批时复核余额不足
// PROCESSING -> COMPLETED：链上打款确认完成
var ValidWithdrawalTransitions = map[string][]string{
	WithdrawalStatusPending:    {WithdrawalStatusProcessing, WithdrawalStatusRejected},
	WithdrawalStatusProcessing: {WithdrawalStatusCompleted},
}

func CanWithdrawalTransitionTo(currentStatus, targetStatus string) bool {
	return canTransitionTo(ValidWithdrawalTransitions, currentStatus, targetStatus)
}

// WithdrawalRequest 提现申请表
//
// 【关键点】提交时只做乐观校验，余额并不冻结；
// 审批时必须在扣款事务内重新校验余额（提交到审批之间余额可能已变化）
type WithdrawalRequest struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_no"` // 申请单号
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	Amount        int64     `gorm:"not null" json:"amount"`                              // 提现金额（最小单位）
	WalletAddress string    `gorm:"type:varchar(128);not null" json:"wallet_address"`    // 收款钱包地址
	Network       string    `gorm:"type:varchar(32);not null" json:"network"`            // 链网络：Polygon / TRC20 / ERC20
	Status        string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_request"
}
