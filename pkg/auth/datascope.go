package auth

import (
	"fmt"

	"gorm.io/gorm"
)

// DataScopeType 数据权限类型
type DataScopeType int

// 数据权限类型常量
const (
	DataScopeAll  DataScopeType = 1 // 全部客户
	DataScopeSelf DataScopeType = 2 // 仅分配给本人的客户
)

// DataScopeInfo 数据权限信息
type DataScopeInfo struct {
	Type       DataScopeType `json:"type"`
	EmployeeID int64         `json:"employeeId"`
	OwnerField string        `json:"ownerField"` // 归属字段名，默认 employee_id
}

// NewDataScopeInfo 创建数据权限信息
func NewDataScopeInfo(scopeType DataScopeType, employeeID int64) *DataScopeInfo {
	return &DataScopeInfo{
		Type:       scopeType,
		EmployeeID: employeeID,
		OwnerField: "employee_id",
	}
}

// WithOwnerField 设置归属字段名
func (d *DataScopeInfo) WithOwnerField(field string) *DataScopeInfo {
	d.OwnerField = field
	return d
}

// Scope 转换为 GORM 查询范围
func (d *DataScopeInfo) Scope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if d.Type == DataScopeAll {
			return db
		}
		return db.Where(fmt.Sprintf("%s = ?", d.OwnerField), d.EmployeeID)
	}
}
