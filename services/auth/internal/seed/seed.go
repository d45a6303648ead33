// Package seed 本地运行用的演示数据。
package seed

import (
	"context"
	"fmt"

	"github.com/asistros/pkg/auth"
	"github.com/asistros/pkg/logger"
	"github.com/asistros/services/auth/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 演示账号
const (
	AdminLogin       = "admin"
	AdminPassword    = "admin123"
	AccountantLogin  = "contador"
	AccountantPasswd = "Conta2024!"

	RoleAdmin      = "ADMIN"
	RoleAccountant = "CONTADOR"
)

// Options 初始化依赖
type Options struct {
	// Legacy 为空时管理员也使用 bcrypt
	Legacy     *auth.LegacyScheme
	Passwords  *auth.PasswordVerifier
	Authorizer *auth.Authorizer
}

func intPtr(v int) *int { return &v }

// Run 写入演示数据，已有账号时跳过
func Run(ctx context.Context, db *gorm.DB, opts Options) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Identity{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count identities: %w", err)
	}
	if count > 0 {
		logger.Debug("已有账号数据，跳过初始化")
		return nil
	}

	adminHash, err := adminHash(opts)
	if err != nil {
		return err
	}
	accountantHash, err := opts.Passwords.HashModern(AccountantPasswd)
	if err != nil {
		return fmt.Errorf("hash accountant password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		menus := []model.Menu{
			{Name: "Clientes", Sort: intPtr(1)},
			{Name: "Facturas", Sort: intPtr(2)},
			{Name: "Reportes", Sort: intPtr(3)},
			{Name: "Usuarios"},
			{Name: "Auditoria"},
		}
		if err := tx.Create(&menus).Error; err != nil {
			return fmt.Errorf("create menus: %w", err)
		}

		admin := model.Role{Name: RoleAdmin}
		for _, m := range menus {
			admin.Permissions = append(admin.Permissions, model.Permission{MenuID: m.ID, CanView: true})
		}
		accountant := model.Role{Name: RoleAccountant, Permissions: []model.Permission{
			{MenuID: menus[0].ID, CanView: true},
			{MenuID: menus[1].ID, CanView: true},
			{MenuID: menus[2].ID, CanView: false},
		}}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("create role %s: %w", RoleAdmin, err)
		}
		if err := tx.Create(&accountant).Error; err != nil {
			return fmt.Errorf("create role %s: %w", RoleAccountant, err)
		}

		identities := []model.Identity{
			{
				LoginName:    AdminLogin,
				PasswordHash: adminHash,
				Active:       true,
				Employee: &model.Employee{
					Status:            1,
					CanViewAllClients: true,
					Person:            &model.Person{FirstName: "Ana", LastName: "Benítez", Email: "admin@asistros.local"},
				},
				Roles: []model.Role{admin},
			},
			{
				LoginName:    AccountantLogin,
				PasswordHash: accountantHash,
				Active:       true,
				Employee: &model.Employee{
					Status: 1,
					Person: &model.Person{FirstName: "Carlos", LastName: "Ruiz", Email: "carlos@asistros.local"},
				},
				Roles: []model.Role{accountant},
			},
		}
		for i := range identities {
			if err := tx.Create(&identities[i]).Error; err != nil {
				return fmt.Errorf("create identity %s: %w", identities[i].LoginName, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if opts.Authorizer != nil {
		if err := opts.Authorizer.Grant(RoleAdmin, "/admin/*", "*"); err != nil {
			return fmt.Errorf("grant admin policy: %w", err)
		}
	}

	logger.Info("演示数据已初始化",
		zap.Strings("logins", []string{AdminLogin, AccountantLogin}),
		zap.Bool("legacyAdminHash", opts.Legacy != nil),
	)
	return nil
}

func adminHash(opts Options) (string, error) {
	if opts.Legacy != nil {
		h, err := opts.Legacy.Encrypt(AdminPassword)
		if err != nil {
			return "", fmt.Errorf("encrypt admin password: %w", err)
		}
		return h, nil
	}
	h, err := opts.Passwords.HashModern(AdminPassword)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return h, nil
}
