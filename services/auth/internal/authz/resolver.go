// Package authz 把角色集合展开为可见菜单。
//
// 结果同时用于令牌中的 permissions（菜单名）和个人资料中的完整菜单列表。
package authz

import (
	"sort"

	"github.com/asistros/services/auth/internal/model"
)

// Resolver 菜单解析器，无状态、无 I/O
type Resolver struct{}

// NewResolver 创建解析器
func NewResolver() Resolver {
	return Resolver{}
}

// ResolveMenus 所有角色中 canView=true 的菜单并集
//
// 按菜单名去重，保留首次出现的记录。有排序值的菜单在前，按排序值升序，
// 排序值相同按ID；没有排序值的保持出现顺序。
func (Resolver) ResolveMenus(roles []model.Role) []model.Menu {
	seen := make(map[string]struct{})
	menus := make([]model.Menu, 0)
	for _, role := range roles {
		for _, perm := range role.Permissions {
			if !perm.CanView || perm.Menu == nil {
				continue
			}
			if _, ok := seen[perm.Menu.Name]; ok {
				continue
			}
			seen[perm.Menu.Name] = struct{}{}
			menus = append(menus, *perm.Menu)
		}
	}

	sort.SliceStable(menus, func(i, j int) bool {
		a, b := menus[i], menus[j]
		switch {
		case a.Sort != nil && b.Sort != nil:
			if *a.Sort != *b.Sort {
				return *a.Sort < *b.Sort
			}
			return a.ID < b.ID
		case a.Sort != nil:
			return true
		default:
			return false
		}
	})
	return menus
}

// PermissionNames 菜单名列表
func (Resolver) PermissionNames(menus []model.Menu) []string {
	names := make([]string, len(menus))
	for i, m := range menus {
		names[i] = m.Name
	}
	return names
}

// RoleNames 角色名列表
func (Resolver) RoleNames(roles []model.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names
}
