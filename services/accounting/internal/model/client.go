package model

import "time"

// Client 客户，按负责员工划分可见范围
type Client struct {
	ID         int64     `gorm:"column:idclientes;primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"column:razonSocial;size:150;not null" json:"name"`
	TaxID      string    `gorm:"column:ruc;size:20;uniqueIndex" json:"taxId"`
	EmployeeID int64     `gorm:"column:idEmpleados;index" json:"employeeId"`
	Active     bool      `gorm:"column:activo;not null" json:"active"`
	CreatedAt  time.Time `gorm:"column:fechaRegistro;autoCreateTime" json:"createdAt"`
}

// TableName 表名
func (Client) TableName() string {
	return "clientes"
}

// OwnerColumn 数据权限使用的归属列
const OwnerColumn = "idEmpleados"
