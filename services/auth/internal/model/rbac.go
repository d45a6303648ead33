package model

// Role 角色
type Role struct {
	ID          int64        `gorm:"column:idroles;primaryKey;autoIncrement" json:"id"`
	Name        string       `gorm:"column:nombre;size:50;uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"foreignKey:RoleID" json:"permissions,omitempty"`
}

// TableName 表名
func (Role) TableName() string {
	return "roles"
}

// Permission 角色对菜单的可见授权，(角色, 菜单) 唯一
type Permission struct {
	RoleID  int64 `gorm:"column:idroles;primaryKey;autoIncrement:false" json:"roleId"`
	MenuID  int64 `gorm:"column:idmenus;primaryKey;autoIncrement:false" json:"menuId"`
	CanView bool  `gorm:"column:ver;not null" json:"canView"`
	Menu    *Menu `gorm:"foreignKey:MenuID" json:"menu,omitempty"`
}

// TableName 表名
func (Permission) TableName() string {
	return "permisos"
}

// Menu 菜单（功能入口）
type Menu struct {
	ID   int64  `gorm:"column:idmenus;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:nombre;size:100;not null" json:"name"`
	Sort *int   `gorm:"column:orden" json:"sort,omitempty"`
}

// TableName 表名
func (Menu) TableName() string {
	return "menus"
}
