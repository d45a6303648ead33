package client

import (
	"context"
	"fmt"

	"github.com/asistros/pkg/auth"
	"github.com/asistros/pkg/dal"
	"github.com/asistros/services/accounting/internal/model"
	"gorm.io/gorm"
)

// Repository 客户仓储
type Repository struct {
	*dal.BaseRepository[model.Client]
}

// NewRepository 创建客户仓储
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{BaseRepository: dal.NewBaseRepository[model.Client](db)}
}

// ListVisible 按数据权限分页查询启用的客户
func (r *Repository) ListVisible(ctx context.Context, scope *auth.DataScopeInfo, page *dal.Pagination) (*dal.PagedResult[model.Client], error) {
	result, err := r.FindPaged(ctx,
		map[string]interface{}{"activo": true},
		page,
		dal.WithScope(scope.WithOwnerField(model.OwnerColumn).Scope()),
		dal.WithOrder("idclientes"),
	)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return result, nil
}

// SeedDemo 写入演示客户，已有数据时跳过
func SeedDemo(ctx context.Context, db *gorm.DB) error {
	repo := NewRepository(db)
	n, err := repo.Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("count clients: %w", err)
	}
	if n > 0 {
		return nil
	}
	clients := []model.Client{
		{Name: "Comercial Andina S.A.", TaxID: "20100000001", EmployeeID: 1, Active: true},
		{Name: "Distribuidora del Sur", TaxID: "20100000002", EmployeeID: 2, Active: true},
		{Name: "Inversiones Lima", TaxID: "20100000003", EmployeeID: 2, Active: true},
		{Name: "Textiles Norte (baja)", TaxID: "20100000004", EmployeeID: 2, Active: false},
	}
	return repo.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&clients).Error
	})
}
