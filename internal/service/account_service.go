package service

import (
	"context"
	"errors"

	"literally/internal/model"
	"literally/internal/repository"

	"gorm.io/gorm"
)

type AccountService struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
	}
}

type CreateProfileRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	DisplayName string `json:"display_name" binding:"required,min=3,max=64"`
	Bio         string `json:"bio" binding:"max=512"`
	AvatarURL   string `json:"avatar_url" binding:"max=256"`
}

// CreateProfile 入驻建档（对应前台 onboarding 流程）
// 笔名全局唯一：先查一次给出友好报错，唯一索引兜底并发提交
func (s *AccountService) CreateProfile(ctx context.Context, req *CreateProfileRequest) (*model.Account, error) {
	existing, err := s.accountRepo.GetByDisplayName(ctx, req.DisplayName)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}
	if existing != nil && existing.UserID != req.UserID {
		return nil, repository.ErrDisplayNameTaken
	}

	account := &model.Account{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		Role:        model.RoleUser,
		Balance:     0,
	}
	// display_name 唯一索引兜底并发注册
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, repository.ErrDisplayNameTaken
		}
		return nil, err
	}
	return account, nil
}

// CheckDisplayName 笔名可用性查询（onboarding 实时校验）
func (s *AccountService) CheckDisplayName(ctx context.Context, displayName string) (bool, error) {
	_, err := s.accountRepo.GetByDisplayName(ctx, displayName)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	return s.accountRepo.GetByUserID(ctx, userID)
}

func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// ListLedger 查询账户流水（工作台"资金明细"页）
func (s *AccountService) ListLedger(ctx context.Context, userID int64, page, pageSize int) ([]*model.LedgerEntry, int64, error) {
	return s.ledgerRepo.ListByUserID(ctx, userID, page, pageSize)
}

// UpdateFollowerCount 社交层回写粉丝数（大赛主办门槛依赖该值）
func (s *AccountService) UpdateFollowerCount(ctx context.Context, userID int64, count int64) error {
	if count < 0 {
		return errors.New("粉丝数不能为负")
	}
	return s.accountRepo.UpdateFollowerCount(ctx, userID, count)
}
