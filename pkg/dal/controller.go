package dal

import (
	"strconv"
	"strings"

	"github.com/asistros/pkg/errors"
	"github.com/gofiber/fiber/v2"
)

// ParseInt64ID 解析正整数 ID
func ParseInt64ID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Validation("ID不能为空")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation("ID格式错误")
	}
	return id, nil
}

// GetIDParam 从路由参数获取 ID
func GetIDParam(ctx *fiber.Ctx, paramName string) (int64, error) {
	return ParseInt64ID(ctx.Params(paramName))
}

// BindPagination 从查询参数绑定分页
func BindPagination(ctx *fiber.Ctx) (*Pagination, error) {
	p := &Pagination{}
	if err := ctx.QueryParser(p); err != nil {
		return nil, errors.Validation("分页参数错误")
	}
	p.Normalize()
	return p, nil
}
