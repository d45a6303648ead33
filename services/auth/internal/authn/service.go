// Package authn 登录、刷新、修改密码与令牌自检。
package authn

//go:generate mockgen -source=service.go -destination=mock_service_test.go -package=authn

import (
	"context"
	"strconv"
	"time"

	"github.com/asistros/pkg/auth"
	apperrors "github.com/asistros/pkg/errors"
	"github.com/asistros/pkg/logger"
	"github.com/asistros/services/auth/internal/audit"
	"github.com/asistros/services/auth/internal/authz"
	"github.com/asistros/services/auth/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName          = "github.com/asistros/services/auth/internal/authn"
	defaultStoreTimeout = 5 * time.Second
	tokenType           = "Bearer"

	opLogin          = "LOGIN"
	opRefresh        = "RENOVACION"
	opChangePassword = "CAMBIO_CONTRASENA"
	opProfile        = "PERFIL"
	opUnlock         = "DESBLOQUEO"
	opAccountStatus  = "ESTADO_CUENTA"
)

// CredentialStore 账号存储，查询结果需预加载员工、人员和角色菜单
// 账号不存在时返回 nil, nil
type CredentialStore interface {
	FindByLoginName(ctx context.Context, loginName string) (*model.Identity, error)
	FindByID(ctx context.Context, id int64) (*model.Identity, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// AuditRecorder 审计投递，调用方不等待结果
type AuditRecorder interface {
	Record(e audit.Event)
}

// Service 认证服务
type Service struct {
	store        CredentialStore
	passwords    *auth.PasswordVerifier
	tokens       *auth.TokenCodec
	resolver     authz.Resolver
	audit        AuditRecorder
	storeTimeout time.Duration
	tracer       trace.Tracer
	log          *zap.Logger
}

// Option 服务选项
type Option func(*Service)

// WithStoreTimeout 设置存储调用超时
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithLogger 指定日志
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService 创建认证服务
func NewService(store CredentialStore, passwords *auth.PasswordVerifier, tokens *auth.TokenCodec, recorder AuditRecorder, opts ...Option) *Service {
	s := &Service{
		store:        store,
		passwords:    passwords,
		tokens:       tokens,
		resolver:     authz.NewResolver(),
		audit:        recorder,
		storeTimeout: defaultStoreTimeout,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.WithFields(zap.String("component", "authn"))
	}
	return s
}

func (s *Service) findByLoginName(ctx context.Context, loginName string) (*model.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.FindByLoginName(ctx, loginName)
}

func (s *Service) findByID(ctx context.Context, id int64) (*model.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.FindByID(ctx, id)
}

func (s *Service) updatePassword(ctx context.Context, id int64, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.UpdatePassword(ctx, id, hash)
}

func (s *Service) setActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.SetActive(ctx, id, active)
}

func (s *Service) record(userID int64, process, detail, ip string) {
	s.audit.Record(audit.Event{
		UserID:  userID,
		Table:   audit.TableUsers,
		Process: process,
		Detail:  detail,
		IP:      ip,
	})
}

// infraFailure 审计并包装存储错误，调用方只看到通用消息
func (s *Service) infraFailure(span trace.Span, op string, userID int64, ip string, err error) error {
	s.log.Error("存储调用失败", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(err))
	s.audit.Record(audit.Event{
		UserID:  userID,
		Table:   audit.TableSystem,
		Process: audit.ErrorProcess(op),
		Detail:  err.Error(),
		IP:      ip,
	})
	return fail(span, apperrors.Infrastructure("", err))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, apperrors.GetMessage(err))
	return err
}

// Login 登录
//
// 顺序：查账号 → 检查启用状态 → 校验密码 → 旧哈希迁移 → 签发令牌 → 审计。
// 旧哈希迁移失败时登录失败，不签发令牌。
func (s *Service) Login(ctx context.Context, in LoginInput) (*SessionTokens, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Login", trace.WithAttributes(attribute.String("login", in.LoginName)))
	defer span.End()

	if in.LoginName == "" || in.Password == "" {
		s.record(0, audit.ProcessLoginFailed, "用户名或密码为空", in.IP)
		return nil, fail(span, apperrors.Validation("用户名和密码不能为空"))
	}

	ident, err := s.findByLoginName(ctx, in.LoginName)
	if err != nil {
		return nil, s.infraFailure(span, opLogin, 0, in.IP, err)
	}
	if ident == nil {
		s.record(0, audit.ProcessLoginFailed, "用户不存在: "+in.LoginName, in.IP)
		return nil, fail(span, apperrors.ErrInvalidCredential)
	}
	if !ident.Active {
		s.record(ident.ID, audit.ProcessLoginFailed, "账号已停用", in.IP)
		return nil, fail(span, apperrors.ErrAccountDisabled)
	}
	if !s.passwords.Verify(in.Password, ident.PasswordHash) {
		s.record(ident.ID, audit.ProcessLoginFailed, "密码错误", in.IP)
		return nil, fail(span, apperrors.ErrInvalidCredential)
	}

	if !s.passwords.IsModernScheme(ident.PasswordHash) {
		hash, err := s.passwords.HashModern(in.Password)
		if err != nil {
			return nil, s.infraFailure(span, opLogin, ident.ID, in.IP, err)
		}
		if err := s.updatePassword(ctx, ident.ID, hash); err != nil {
			return nil, s.infraFailure(span, opLogin, ident.ID, in.IP, err)
		}
		ident.PasswordHash = hash
		s.log.Info("密码哈希已迁移", zap.Int64("user_id", ident.ID))
		span.AddEvent("password.migrated")
	}

	tokens, err := s.issue(ident)
	if err != nil {
		return nil, s.infraFailure(span, opLogin, ident.ID, in.IP, err)
	}
	refresh, err := s.tokens.IssueRefresh(ident.ID, ident.LoginName)
	if err != nil {
		return nil, s.infraFailure(span, opLogin, ident.ID, in.IP, err)
	}
	tokens.RefreshToken = refresh

	s.record(ident.ID, audit.ProcessLoginSuccess, "", in.IP)
	span.SetAttributes(attribute.Int64("user.id", ident.ID))
	return tokens, nil
}

// issue 按当前角色签发会话令牌
func (s *Service) issue(ident *model.Identity) (*SessionTokens, error) {
	menus := s.resolver.ResolveMenus(ident.Roles)
	roles := s.resolver.RoleNames(ident.Roles)
	permissions := s.resolver.PermissionNames(menus)

	token, claims, err := s.tokens.IssueSession(auth.SessionSubject{
		UserID:            ident.ID,
		LoginName:         ident.LoginName,
		EmployeeID:        ident.EmployeeID,
		FullName:          ident.FullName(),
		Email:             ident.Email(),
		Roles:             roles,
		Permissions:       permissions,
		CanViewAllClients: ident.CanViewAllClients(),
		EmployeeStatus:    ident.EmployeeStatus(),
	})
	if err != nil {
		return nil, err
	}

	return &SessionTokens{
		SessionToken: token,
		TokenType:    tokenType,
		ExpiresIn:    int64(s.tokens.SessionTTL().Seconds()),
		Identity:     summarize(ident),
		Roles:        claims.Roles,
		Permissions:  claims.Permissions,
	}, nil
}

func summarize(ident *model.Identity) IdentitySummary {
	return IdentitySummary{
		ID:                ident.ID,
		LoginName:         ident.LoginName,
		EmployeeID:        ident.EmployeeID,
		FullName:          ident.FullName(),
		Email:             ident.Email(),
		CanViewAllClients: ident.CanViewAllClients(),
	}
}

// Refresh 用刷新令牌换新的会话令牌
// 重新读取账号的角色授权，刷新令牌原样返回
func (s *Service) Refresh(ctx context.Context, refreshToken, ip string) (*SessionTokens, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Refresh")
	defer span.End()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.record(0, audit.ProcessRefreshFailed, "刷新令牌无效", ip)
		return nil, fail(span, apperrors.ErrTokenInvalid)
	}

	ident, err := s.findByID(ctx, claims.UserID)
	if err != nil {
		return nil, s.infraFailure(span, opRefresh, claims.UserID, ip, err)
	}
	if ident == nil {
		s.record(claims.UserID, audit.ProcessRefreshFailed, "用户不存在", ip)
		return nil, fail(span, apperrors.ErrTokenInvalid)
	}
	if !ident.Active {
		s.record(ident.ID, audit.ProcessRefreshFailed, "账号已停用", ip)
		return nil, fail(span, apperrors.ErrAccountDisabled)
	}

	tokens, err := s.issue(ident)
	if err != nil {
		return nil, s.infraFailure(span, opRefresh, ident.ID, ip, err)
	}
	tokens.RefreshToken = refreshToken
	return tokens, nil
}

// ChangePassword 修改密码，新密码一律以 bcrypt 保存
func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	ctx, span := s.tracer.Start(ctx, "authn.ChangePassword", trace.WithAttributes(attribute.Int64("user.id", in.UserID)))
	defer span.End()

	if in.New != in.Confirm {
		s.record(in.UserID, audit.ProcessPasswordChangeFailed, "两次密码不一致", in.IP)
		return fail(span, apperrors.ErrPasswordMismatch)
	}

	ident, err := s.findByID(ctx, in.UserID)
	if err != nil {
		return s.infraFailure(span, opChangePassword, in.UserID, in.IP, err)
	}
	if ident == nil {
		s.record(in.UserID, audit.ProcessPasswordChangeFailed, "用户不存在", in.IP)
		return fail(span, apperrors.ErrUnauthorized)
	}
	if !ident.Active {
		s.record(ident.ID, audit.ProcessPasswordChangeFailed, "账号已停用", in.IP)
		return fail(span, apperrors.ErrAccountDisabled)
	}
	if !s.passwords.Verify(in.Current, ident.PasswordHash) {
		s.record(ident.ID, audit.ProcessPasswordChangeFailed, "当前密码错误", in.IP)
		return fail(span, apperrors.Authentication("当前密码错误"))
	}
	if ok, advice := auth.PasswordStrength(in.New); !ok {
		s.record(ident.ID, audit.ProcessPasswordChangeFailed, "密码强度不足", in.IP)
		return fail(span, apperrors.Unprocessable("密码强度不足: "+advice))
	}

	hash, err := s.passwords.HashModern(in.New)
	if err != nil {
		return s.infraFailure(span, opChangePassword, ident.ID, in.IP, err)
	}
	if err := s.updatePassword(ctx, ident.ID, hash); err != nil {
		return s.infraFailure(span, opChangePassword, ident.ID, in.IP, err)
	}

	s.record(ident.ID, audit.ProcessPasswordChanged, "", in.IP)
	return nil
}

// Validate 令牌自检，只读
func (s *Service) Validate(token string) ValidationResult {
	claims, reason := s.tokens.Inspect(token)
	if reason != auth.ReasonNone {
		return ValidationResult{Valid: false, InvalidReason: reason}
	}
	return ValidationResult{Valid: true, Claims: claims}
}

// Profile 个人资料，包含完整的可见菜单
func (s *Service) Profile(ctx context.Context, userID int64) (*Profile, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Profile", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	ident, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, s.infraFailure(span, opProfile, userID, "", err)
	}
	if ident == nil {
		return nil, fail(span, apperrors.NotFound("用户"))
	}

	menus := s.resolver.ResolveMenus(ident.Roles)
	views := make([]MenuView, len(menus))
	for i, m := range menus {
		views[i] = MenuView{ID: m.ID, Name: m.Name, Sort: m.Sort, CanView: true}
	}
	return &Profile{
		Identity: summarize(ident),
		Active:   ident.Active,
		Roles:    s.resolver.RoleNames(ident.Roles),
		Menus:    views,
	}, nil
}

// Logout 只记录审计，令牌在自然过期前仍然有效
func (s *Service) Logout(ctx context.Context, userID int64, ip string) {
	_, span := s.tracer.Start(ctx, "authn.Logout", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	s.record(userID, audit.ProcessLogout, "", ip)
}

// UnlockAccount 管理员解锁账号
// 系统没有锁定机制，这里只校验目标账号存在并留下审计
func (s *Service) UnlockAccount(ctx context.Context, actorID, targetID int64, ip string) error {
	ctx, span := s.tracer.Start(ctx, "authn.UnlockAccount", trace.WithAttributes(
		attribute.Int64("actor.id", actorID),
		attribute.Int64("target.id", targetID),
	))
	defer span.End()

	ident, err := s.findByID(ctx, targetID)
	if err != nil {
		return s.infraFailure(span, opUnlock, actorID, ip, err)
	}
	if ident == nil {
		return fail(span, apperrors.NotFound("用户"))
	}

	s.record(actorID, audit.ProcessAccountUnlocked, "目标用户: "+strconv.FormatInt(targetID, 10), ip)
	return nil
}

// SetAccountActive 管理员启用或停用账号，账号只停用不删除
// 已签发的令牌不受影响，停用后无法登录或刷新
func (s *Service) SetAccountActive(ctx context.Context, actorID, targetID int64, active bool, ip string) error {
	ctx, span := s.tracer.Start(ctx, "authn.SetAccountActive", trace.WithAttributes(
		attribute.Int64("actor.id", actorID),
		attribute.Int64("target.id", targetID),
		attribute.Bool("active", active),
	))
	defer span.End()

	if !active && actorID == targetID {
		return fail(span, apperrors.Validation("不能停用自己的账号"))
	}

	ident, err := s.findByID(ctx, targetID)
	if err != nil {
		return s.infraFailure(span, opAccountStatus, actorID, ip, err)
	}
	if ident == nil {
		return fail(span, apperrors.NotFound("用户"))
	}

	if ident.Active != active {
		if err := s.setActive(ctx, targetID, active); err != nil {
			return s.infraFailure(span, opAccountStatus, actorID, ip, err)
		}
	}

	process := audit.ProcessAccountDeactivated
	if active {
		process = audit.ProcessAccountActivated
	}
	s.record(actorID, process, "目标用户: "+strconv.FormatInt(targetID, 10), ip)
	return nil
}
