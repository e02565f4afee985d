package auth

import (
	"context"
	"errors"

	"literally/internal/model"
	"literally/internal/repository"

	"gorm.io/gorm"
)

var ErrPermissionDenied = errors.New("无权执行该操作")

// Gate 授权闸门
//
// 所有会触发资金变动的入口必须先过闸门，再调用转账引擎。
// 管理员身份以账户 Role 字段为准（角色落库，不做任何硬编码身份比对），
// 大赛结赛权以 Competition.HostID 为准
type Gate struct {
	accountRepo *repository.AccountRepository
}

func NewGate(db *gorm.DB) *Gate {
	return &Gate{
		accountRepo: repository.NewAccountRepository(db),
	}
}

// RequireAdmin 要求操作者持有平台管理员角色（仅登录不够）
func (g *Gate) RequireAdmin(ctx context.Context, actorID int64) error {
	account, err := g.accountRepo.GetByUserID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrPermissionDenied
		}
		return err
	}
	if account.Role != model.RoleAdmin {
		return ErrPermissionDenied
	}
	return nil
}

// RequireHost 要求操作者是该大赛的主办方
func (g *Gate) RequireHost(actorID int64, comp *model.Competition) error {
	if comp == nil || comp.HostID != actorID {
		return ErrPermissionDenied
	}
	return nil
}
