package model

import "time"

// AuditEvent 审计记录，只追加
type AuditEvent struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"column:usuarios_idusuarios;index;not null" json:"userId"`
	Table     string    `gorm:"column:tabla;size:50;not null" json:"table"`
	Process   string    `gorm:"column:proceso;size:50;index;not null" json:"process"`
	Detail    string    `gorm:"column:detalle;size:255" json:"detail"`
	IP        string    `gorm:"column:ip;size:64" json:"ip"`
	CreatedAt time.Time `gorm:"column:fecha;not null" json:"createdAt"`
}

// TableName 表名
func (AuditEvent) TableName() string {
	return "auditoria"
}

// All 需要迁移的模型
func All() []interface{} {
	return []interface{}{
		&Person{},
		&Employee{},
		&Menu{},
		&Role{},
		&Permission{},
		&Identity{},
		&AuditEvent{},
	}
}
