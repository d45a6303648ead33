package identity

import (
	"context"
	"fmt"

	"github.com/asistros/pkg/dal"
	"github.com/asistros/services/auth/internal/model"
	"gorm.io/gorm"
)

// Repository 账号仓储，查询时预加载员工、人员、角色及其菜单授权
type Repository struct {
	*dal.BaseRepository[model.Identity]
}

// NewRepository 创建账号仓储
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{BaseRepository: dal.NewBaseRepository[model.Identity](db)}
}

func preloadAll() []dal.QueryOption {
	return []dal.QueryOption{
		dal.WithPreload("Employee.Person"),
		dal.WithPreload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.idroles") }),
		dal.WithPreload("Roles.Permissions.Menu"),
	}
}

// FindByLoginName 按登录名查找，不存在返回 nil
func (r *Repository) FindByLoginName(ctx context.Context, loginName string) (*model.Identity, error) {
	ident, err := r.FindOne(ctx, map[string]interface{}{"usuario": loginName}, preloadAll()...)
	if err != nil {
		return nil, fmt.Errorf("find identity %q: %w", loginName, err)
	}
	return ident, nil
}

// FindByID 按ID查找，不存在返回 nil
func (r *Repository) FindByID(ctx context.Context, id int64) (*model.Identity, error) {
	ident, err := r.FindOne(ctx, map[string]interface{}{"idusuarios": id}, preloadAll()...)
	if err != nil {
		return nil, fmt.Errorf("find identity %d: %w", id, err)
	}
	return ident, nil
}

// UpdatePassword 替换密码哈希
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	n, err := r.UpdateWhere(ctx,
		map[string]interface{}{"idusuarios": id},
		map[string]interface{}{"contrasena": hash},
	)
	if err != nil {
		return fmt.Errorf("update password %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update password %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// SetActive 启用或停用账号
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.UpdateWhere(ctx,
		map[string]interface{}{"idusuarios": id},
		map[string]interface{}{"activo": active},
	)
	return err
}
