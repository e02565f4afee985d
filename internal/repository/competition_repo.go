package repository

import (
	"context"
	"errors"

	"literally/internal/model"

	"gorm.io/gorm"
)

var (
	ErrCompetitionNotFound = errors.New("大赛不存在")
	ErrAlreadyEntered      = errors.New("已报名该大赛，请勿重复报名")
	ErrEntryNotFound       = errors.New("参赛记录不存在")
)

type CompetitionRepository struct {
	db *gorm.DB
}

func NewCompetitionRepository(db *gorm.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

func (r *CompetitionRepository) Create(ctx context.Context, tx *gorm.DB, comp *model.Competition) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(comp).Error
}

func (r *CompetitionRepository) GetByCompetitionNo(ctx context.Context, competitionNo string) (*model.Competition, error) {
	return r.getByCompetitionNo(ctx, r.db, competitionNo)
}

func (r *CompetitionRepository) getByCompetitionNo(ctx context.Context, db *gorm.DB, competitionNo string) (*model.Competition, error) {
	var comp model.Competition
	err := db.WithContext(ctx).Where("competition_no = ?", competitionNo).First(&comp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	return &comp, nil
}

// Close 结赛：ACTIVE -> CLOSED 并写入获奖者，CAS 保证只会成功一次
//
// 【关键点】WHERE 带 status = ACTIVE，并发的重复"加冕"只有一个能改成功，
// 这是防止奖金二次发放的第一道闸（第二道是流水表幂等索引）
func (r *CompetitionRepository) Close(ctx context.Context, tx *gorm.DB, competitionNo string, winnerID int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Competition{}).
		Where("competition_no = ? AND status = ?", competitionNo, model.CompetitionStatusActive).
		Updates(map[string]interface{}{
			"status":    model.CompetitionStatusClosed,
			"winner_id": winnerID,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.getByCompetitionNo(ctx, tx, competitionNo); err != nil {
			return err
		}
		return ErrInvalidStateTransition
	}
	return nil
}

func (r *CompetitionRepository) ListActive(ctx context.Context, limit int) ([]*model.Competition, error) {
	var comps []*model.Competition
	err := r.db.WithContext(ctx).
		Where("status = ?", model.CompetitionStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&comps).Error
	return comps, err
}

// CreateEntry 新增参赛记录，受 (competition_no, user_id) 唯一索引保护
func (r *CompetitionRepository) CreateEntry(ctx context.Context, entry *model.CompetitionEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyEntered
	}
	return err
}

func (r *CompetitionRepository) GetEntry(ctx context.Context, competitionNo string, userID int64) (*model.CompetitionEntry, error) {
	var entry model.CompetitionEntry
	err := r.db.WithContext(ctx).
		Where("competition_no = ? AND user_id = ?", competitionNo, userID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *CompetitionRepository) ListEntries(ctx context.Context, competitionNo string) ([]*model.CompetitionEntry, error) {
	var entries []*model.CompetitionEntry
	err := r.db.WithContext(ctx).
		Where("competition_no = ?", competitionNo).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
