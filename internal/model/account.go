package model

import (
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account 作者/读者账户表
// 记录用户的钱包余额（USDT 最小单位），是整个资金系统的核心数据
//
// 【重要】Balance 字段只允许通过 TransferService 修改，
// 任何业务代码都不得直接读余额再写回（会产生丢失更新）
type Account struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"uniqueIndex;not null" json:"user_id"`                        // 用户ID，认证服务下发
	DisplayName   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"display_name"` // 笔名，全局唯一
	Bio           string    `gorm:"type:varchar(512)" json:"bio"`                               // 个人简介
	AvatarURL     string    `gorm:"type:varchar(256)" json:"avatar_url"`                        // 头像对象存储地址（不解析内容）
	Role          string    `gorm:"type:varchar(16);not null;default:USER" json:"role"`         // USER / ADMIN
	FollowerCount int64     `gorm:"not null;default:0" json:"follower_count"`                   // 粉丝数（社交层维护，这里只存取）
	Balance       int64     `gorm:"not null;default:0" json:"balance"`                          // 可用余额（最小单位）
	Version       int       `gorm:"not null;default:0" json:"version"`                          // 乐观锁版本号
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
