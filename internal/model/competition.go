package model

import (
	"time"
)

const (
	CompetitionStatusActive = "ACTIVE"
	CompetitionStatusClosed = "CLOSED"
)

// ValidCompetitionTransitions 写作大赛状态机
// ACTIVE -> CLOSED 只允许发生一次（伴随唯一一笔奖金发放）
var ValidCompetitionTransitions = map[string][]string{
	CompetitionStatusActive: {CompetitionStatusClosed},
}

func CanCompetitionTransitionTo(currentStatus, targetStatus string) bool {
	return canTransitionTo(ValidCompetitionTransitions, currentStatus, targetStatus)
}

// Competition 写作大赛表
//
// 【关键点】大赛只有在奖池已从主办方账户托管扣款成功后才会落库（同一事务），
// 不存在"已创建但未注资"的大赛
type Competition struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CompetitionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"competition_no"` // 大赛编号
	HostID        int64     `gorm:"index;not null" json:"host_id"`                               // 主办方用户ID
	Title         string    `gorm:"type:varchar(128);not null" json:"title"`
	Description   string    `gorm:"type:varchar(1024)" json:"description"`
	PrizePool     int64     `gorm:"not null" json:"prize_pool"` // 奖池金额（最小单位；展示格式如 "500 USDT" 由前端拼接）
	Status        string    `gorm:"type:varchar(20);index;not null" json:"status"`
	WinnerID      *int64    `json:"winner_id"` // 获奖者用户ID，结赛时写入
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Competition) TableName() string {
	return "competition"
}

// CompetitionEntry 大赛参赛记录
// 每人每赛只能报名一次
type CompetitionEntry struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CompetitionNo string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_competition_user" json:"competition_no"`
	UserID        int64     `gorm:"not null;uniqueIndex:uk_competition_user" json:"user_id"`
	SubmissionRef string    `gorm:"type:varchar(128)" json:"submission_ref"` // 参赛作品引用（书籍/章节ID）
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CompetitionEntry) TableName() string {
	return "competition_entry"
}
