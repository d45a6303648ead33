package auth

import (
	"fmt"

	"github.com/asistros/pkg/config"
	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// DefaultCasbinModel 以角色名为主体的 RBAC 模型，路径支持 keyMatch2
const DefaultCasbinModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Authorizer 管理类操作的角色鉴权
type Authorizer struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizer 创建基于数据库策略的鉴权器
func NewAuthorizer(db *gorm.DB, cfg *config.CasbinConfig) (*Authorizer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := loadModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load casbin policy: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// NewMemoryAuthorizer 创建仅在内存中保存策略的鉴权器
func NewMemoryAuthorizer() (*Authorizer, error) {
	m, err := loadModel("")
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

func loadModel(path string) (model.Model, error) {
	if path == "" {
		return model.NewModelFromString(DefaultCasbinModel)
	}
	return model.NewModelFromFile(path)
}

// Grant 授予角色对资源的操作
func (a *Authorizer) Grant(role, obj, act string) error {
	_, err := a.enforcer.AddPolicy(role, obj, act)
	return err
}

// Allow 任一角色允许即放行
func (a *Authorizer) Allow(roles []string, obj, act string) (bool, error) {
	for _, role := range roles {
		ok, err := a.enforcer.Enforce(role, obj, act)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
