package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// 令牌类型
const (
	KindSession = "session"
	KindRefresh = "refresh"
)

// SessionSubject 签发会话令牌所需的身份与授权信息
type SessionSubject struct {
	UserID            int64
	LoginName         string
	EmployeeID        int64
	FullName          string
	Email             string
	Roles             []string
	Permissions       []string
	CanViewAllClients bool
	EmployeeStatus    int
}

// SessionClaims 会话令牌声明，签发后不再修改
type SessionClaims struct {
	UserID            int64    `json:"userId"`
	EmployeeID        int64    `json:"employeeId"`
	FullName          string   `json:"fullName"`
	Email             string   `json:"email,omitempty"`
	Roles             []string `json:"roles"`
	Permissions       []string `json:"permissions"`
	CanViewAllClients bool     `json:"canViewAllClients"`
	EmployeeStatus    int      `json:"employeeStatus"`
	Kind              string   `json:"kind"`
	jwt.RegisteredClaims
}

// LoginName 登录名（令牌主体）
func (c *SessionClaims) LoginName() string {
	return c.Subject
}

// RefreshClaims 刷新令牌声明，不携带任何授权信息
type RefreshClaims struct {
	UserID int64  `json:"userId"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// LoginName 登录名（令牌主体）
func (c *RefreshClaims) LoginName() string {
	return c.Subject
}

// cloneStrings 拷贝切片，避免声明与调用方共享底层数组
func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
