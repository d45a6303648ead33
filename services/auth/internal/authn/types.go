package authn

import (
	"github.com/asistros/pkg/auth"
)

// LoginInput 登录参数
type LoginInput struct {
	LoginName string
	Password  string
	IP        string
}

// ChangePasswordInput 修改密码参数
type ChangePasswordInput struct {
	UserID  int64
	Current string
	New     string
	Confirm string
	IP      string
}

// IdentitySummary 账号摘要
type IdentitySummary struct {
	ID                int64  `json:"id"`
	LoginName         string `json:"loginName"`
	EmployeeID        int64  `json:"employeeId"`
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	CanViewAllClients bool   `json:"canViewAllClients"`
}

// SessionTokens 登录与刷新的结果
type SessionTokens struct {
	SessionToken string          `json:"sessionToken"`
	RefreshToken string          `json:"refreshToken"`
	TokenType    string          `json:"tokenType"`
	ExpiresIn    int64           `json:"expiresIn"`
	Identity     IdentitySummary `json:"identity"`
	Roles        []string        `json:"roles"`
	Permissions  []string        `json:"permissions"`
}

// ValidationResult 令牌自检结果
type ValidationResult struct {
	Valid         bool                `json:"valid"`
	Claims        *auth.SessionClaims `json:"claims,omitempty"`
	InvalidReason auth.InvalidReason  `json:"invalidReason,omitempty"`
}

// MenuView 个人资料中的菜单
type MenuView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Sort    *int   `json:"sort,omitempty"`
	CanView bool   `json:"canView"`
}

// Profile 个人资料
type Profile struct {
	Identity IdentitySummary `json:"identity"`
	Active   bool            `json:"active"`
	Roles    []string        `json:"roles"`
	Menus    []MenuView      `json:"menus"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	LoginName string `json:"loginName"`
	Password  string `json:"password"`
}

// RefreshRequest 刷新请求
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}
