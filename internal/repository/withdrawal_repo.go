package repository

import (
	"context"
	"errors"

	"literally/internal/model"

	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(ctx context.Context, tx *gorm.DB, req *model.WithdrawalRequest) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(req).Error
}

func (r *WithdrawalRepository) GetByRequestNo(ctx context.Context, requestNo string) (*model.WithdrawalRequest, error) {
	return r.getByRequestNo(ctx, r.db, requestNo)
}

func (r *WithdrawalRepository) GetByRequestNoTx(ctx context.Context, tx *gorm.DB, requestNo string) (*model.WithdrawalRequest, error) {
	if tx == nil {
		tx = r.db
	}
	return r.getByRequestNo(ctx, tx, requestNo)
}

func (r *WithdrawalRepository) getByRequestNo(ctx context.Context, db *gorm.DB, requestNo string) (*model.WithdrawalRequest, error) {
	var req model.WithdrawalRequest
	err := db.WithContext(ctx).Where("request_no = ?", requestNo).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// UpdateStatus CAS 式状态流转，语义同 DepositRepository.UpdateStatus
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, requestNo, fromStatus, toStatus string) error {
	if tx == nil {
		tx = r.db
	}

	if !model.CanWithdrawalTransitionTo(fromStatus, toStatus) {
		return ErrInvalidStateTransition
	}

	result := tx.WithContext(ctx).
		Model(&model.WithdrawalRequest{}).
		Where("request_no = ? AND status = ?", requestNo, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.getByRequestNo(ctx, tx, requestNo); err != nil {
			return err
		}
		return ErrInvalidStateTransition
	}
	return nil
}

func (r *WithdrawalRepository) ListPending(ctx context.Context, limit int) ([]*model.WithdrawalRequest, error) {
	var reqs []*model.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", model.WithdrawalStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

func (r *WithdrawalRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.WithdrawalRequest, int64, error) {
	var reqs []*model.WithdrawalRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reqs).Error

	return reqs, total, err
}
