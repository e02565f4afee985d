package repository

import (
	"context"
	"errors"

	"literally/internal/model"

	"gorm.io/gorm"
)

var (
	ErrRequestNotFound        = errors.New("申请单不存在")
	ErrDuplicateProof         = errors.New("该转账哈希已提交过充值申请")
	ErrInvalidStateTransition = errors.New("申请单状态不允许该操作")
)

type DepositRepository struct {
	db *gorm.DB
}

func NewDepositRepository(db *gorm.DB) *DepositRepository {
	return &DepositRepository{db: db}
}

func (r *DepositRepository) Create(ctx context.Context, tx *gorm.DB, req *model.DepositRequest) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(req).Error
}

func (r *DepositRepository) GetByRequestNo(ctx context.Context, requestNo string) (*model.DepositRequest, error) {
	return r.getByRequestNo(ctx, r.db, requestNo)
}

func (r *DepositRepository) GetByRequestNoTx(ctx context.Context, tx *gorm.DB, requestNo string) (*model.DepositRequest, error) {
	if tx == nil {
		tx = r.db
	}
	return r.getByRequestNo(ctx, tx, requestNo)
}

func (r *DepositRepository) getByRequestNo(ctx context.Context, db *gorm.DB, requestNo string) (*model.DepositRequest, error) {
	var req model.DepositRequest
	err := db.WithContext(ctx).Where("request_no = ?", requestNo).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// GetByTxHash 按转账哈希查找（防止同一笔链上转账重复申请）
func (r *DepositRepository) GetByTxHash(ctx context.Context, txHash string) (*model.DepositRequest, error) {
	var req model.DepositRequest
	err := r.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// UpdateStatus CAS 式状态流转：WHERE 带上当前状态，
// 并发的重复审批只有一个能改成功，其余返回 ErrInvalidStateTransition
func (r *DepositRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, requestNo, fromStatus, toStatus string) error {
	if tx == nil {
		tx = r.db
	}

	if !model.CanDepositTransitionTo(fromStatus, toStatus) {
		return ErrInvalidStateTransition
	}

	result := tx.WithContext(ctx).
		Model(&model.DepositRequest{}).
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

func (r *DepositRepository) ListPending(ctx context.Context, limit int) ([]*model.DepositRequest, error) {
	var reqs []*model.DepositRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", model.DepositStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

func (r *DepositRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositRequest, int64, error) {
	var reqs []*model.DepositRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&model.DepositRequest{}).Where("user_id = ?", userID)

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
