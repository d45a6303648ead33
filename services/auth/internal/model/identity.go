package model

import "strings"

// Identity 登录账号，只停用不删除
type Identity struct {
	ID           int64     `gorm:"column:idusuarios;primaryKey;autoIncrement" json:"id"`
	EmployeeID   int64     `gorm:"column:idEmpleados;index" json:"employeeId"`
	LoginName    string    `gorm:"column:usuario;size:50;uniqueIndex;not null" json:"loginName"`
	PasswordHash string    `gorm:"column:contrasena;size:255;not null" json:"-"`
	Active       bool      `gorm:"column:activo;not null" json:"active"`
	Employee     *Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Roles        []Role    `gorm:"many2many:usuarios_roles;joinForeignKey:usuarios_idusuarios;joinReferences:roles_idroles" json:"roles,omitempty"`
}

// TableName 表名
func (Identity) TableName() string {
	return "usuarios"
}

// FullName 姓名，来自人员信息
func (i *Identity) FullName() string {
	if i.Employee == nil || i.Employee.Person == nil {
		return ""
	}
	p := i.Employee.Person
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Email 邮箱，可能为空
func (i *Identity) Email() string {
	if i.Employee == nil || i.Employee.Person == nil {
		return ""
	}
	return i.Employee.Person.Email
}

// CanViewAllClients 是否可查看全部客户
func (i *Identity) CanViewAllClients() bool {
	return i.Employee != nil && i.Employee.CanViewAllClients
}

// EmployeeStatus 员工状态，无员工信息时为 0
func (i *Identity) EmployeeStatus() int {
	if i.Employee == nil {
		return 0
	}
	return i.Employee.Status
}

// Employee 员工
type Employee struct {
	ID                int64   `gorm:"column:idempleados;primaryKey;autoIncrement" json:"id"`
	PersonID          int64   `gorm:"column:personas_idpersonas;index" json:"personId"`
	Status            int     `gorm:"column:estado;not null" json:"status"`
	CanViewAllClients bool    `gorm:"column:verTodosClientes;not null" json:"canViewAllClients"`
	Person            *Person `gorm:"foreignKey:PersonID" json:"person,omitempty"`
}

// TableName 表名
func (Employee) TableName() string {
	return "empleados"
}

// Person 人员信息
type Person struct {
	ID        int64  `gorm:"column:idpersonas;primaryKey;autoIncrement" json:"id"`
	FirstName string `gorm:"column:nombre;size:100" json:"firstName"`
	LastName  string `gorm:"column:apellido;size:100" json:"lastName"`
	Email     string `gorm:"column:correo;size:100" json:"email"`
}

// TableName 表名
func (Person) TableName() string {
	return "personas"
}
