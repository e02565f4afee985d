package model

import (
	"time"
)

const (
	DepositStatusPending   = "PENDING"
	DepositStatusCompleted = "COMPLETED"
	DepositStatusRejected  = "REJECTED"
)

// ValidDepositTransitions 充值申请状态机
// 终态（COMPLETED / REJECTED）不可再流转
var ValidDepositTransitions = map[string][]string{
	DepositStatusPending: {DepositStatusCompleted, DepositStatusRejected},
}

func CanDepositTransitionTo(currentStatus, targetStatus string) bool {
	return canTransitionTo(ValidDepositTransitions, currentStatus, targetStatus)
}

// DepositRequest 充值申请表
// 用户链上转账后提交转账哈希作为支付凭证，管理员人工核验后入账
type DepositRequest struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_no"` // 申请单号
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`                                // 充值金额（最小单位）
	TxHash    string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"tx_hash"` // 链上转账哈希，全局唯一，防止一笔转账重复入账
	Status    string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DepositRequest) TableName() string {
	return "deposit_request"
}

func canTransitionTo(transitions map[string][]string, currentStatus, targetStatus string) bool {
	allowedStatuses, exists := transitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}
