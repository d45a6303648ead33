package auth

import (
	"fmt"
	"strconv"
	"strings"
)

// 网关注入的可信身份头
const (
	HeaderUserID            = "X-User-Id"
	HeaderEmployeeID        = "X-Employee-Id"
	HeaderUserName          = "X-User-Name"
	HeaderUserFullName      = "X-User-Full-Name"
	HeaderUserEmail         = "X-User-Email"
	HeaderUserRoles         = "X-User-Roles"
	HeaderUserPermissions   = "X-User-Permissions"
	HeaderCanViewAllClients = "X-Can-View-All-Clients"
)

// IdentityHeaders 全部身份头名称
var IdentityHeaders = []string{
	HeaderUserID,
	HeaderEmployeeID,
	HeaderUserName,
	HeaderUserFullName,
	HeaderUserEmail,
	HeaderUserRoles,
	HeaderUserPermissions,
	HeaderCanViewAllClients,
}

// Principal 经网关认证后的调用方身份
type Principal struct {
	UserID            int64    `json:"userId"`
	EmployeeID        int64    `json:"employeeId"`
	LoginName         string   `json:"loginName"`
	FullName          string   `json:"fullName"`
	Email             string   `json:"email"`
	Roles             []string `json:"roles"`
	Permissions       []string `json:"permissions"`
	CanViewAllClients bool     `json:"canViewAllClients"`
}

// PrincipalFromClaims 由会话声明构造
func PrincipalFromClaims(c *SessionClaims) Principal {
	return Principal{
		UserID:            c.UserID,
		EmployeeID:        c.EmployeeID,
		LoginName:         c.LoginName(),
		FullName:          c.FullName,
		Email:             c.Email,
		Roles:             cloneStrings(c.Roles),
		Permissions:       cloneStrings(c.Permissions),
		CanViewAllClients: c.CanViewAllClients,
	}
}

// Header 单个身份头
type Header struct {
	Name  string
	Value string
}

// Headers 转换为转发用的身份头，顺序固定
func (p Principal) Headers() []Header {
	return []Header{
		{HeaderUserID, strconv.FormatInt(p.UserID, 10)},
		{HeaderEmployeeID, strconv.FormatInt(p.EmployeeID, 10)},
		{HeaderUserName, p.LoginName},
		{HeaderUserFullName, p.FullName},
		{HeaderUserEmail, p.Email},
		{HeaderUserRoles, strings.Join(p.Roles, ",")},
		{HeaderUserPermissions, strings.Join(p.Permissions, ",")},
		{HeaderCanViewAllClients, strconv.FormatBool(p.CanViewAllClients)},
	}
}

// PrincipalFromHeaders 从可信身份头还原调用方
// 下游服务只认这些头，不再校验令牌
func PrincipalFromHeaders(get func(name string) string) (Principal, error) {
	rawID := get(HeaderUserID)
	if rawID == "" {
		return Principal{}, fmt.Errorf("missing %s header", HeaderUserID)
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid %s header: %w", HeaderUserID, err)
	}

	var employeeID int64
	if raw := get(HeaderEmployeeID); raw != "" {
		employeeID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Principal{}, fmt.Errorf("invalid %s header: %w", HeaderEmployeeID, err)
		}
	}

	return Principal{
		UserID:            userID,
		EmployeeID:        employeeID,
		LoginName:         get(HeaderUserName),
		FullName:          get(HeaderUserFullName),
		Email:             get(HeaderUserEmail),
		Roles:             splitList(get(HeaderUserRoles)),
		Permissions:       splitList(get(HeaderUserPermissions)),
		CanViewAllClients: get(HeaderCanViewAllClients) == "true",
	}, nil
}

// DataScope 客户数据可见范围
func (p Principal) DataScope() *DataScopeInfo {
	if p.CanViewAllClients {
		return NewDataScopeInfo(DataScopeAll, p.EmployeeID)
	}
	return NewDataScopeInfo(DataScopeSelf, p.EmployeeID)
}

func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
