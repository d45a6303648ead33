// Package audit 认证相关操作的异步审计。
//
// 写入尽力而为：投递不阻塞请求，队列满或落库失败只记录日志。
package audit

import (
	"context"
	"time"

	"github.com/asistros/pkg/config"
	"github.com/asistros/pkg/dal"
	"github.com/asistros/pkg/logger"
	"github.com/asistros/pkg/worker"
	"github.com/asistros/services/auth/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 审计流程名
const (
	ProcessLoginSuccess         = "LOGIN_EXITOSO"
	ProcessLoginFailed          = "LOGIN_FALLIDO"
	ProcessRefreshFailed        = "RENOVACION_FALLIDA"
	ProcessPasswordChanged      = "CAMBIO_CONTRASENA_EXITOSO"
	ProcessPasswordChangeFailed = "CAMBIO_CONTRASENA_FALLIDO"
	ProcessLogout               = "LOGOUT"
	ProcessAccountUnlocked      = "DESBLOQUEO_CUENTA"
	ProcessAccountActivated     = "ACTIVACION_CUENTA"
	ProcessAccountDeactivated   = "DESACTIVACION_CUENTA"
)

// 审计表名
const (
	TableUsers  = "usuarios"
	TableSystem = "sistema"
)

const (
	processErrorPrefix = "ERROR_"
	defaultWorkers     = 2
	maxWorkers         = 5
	defaultQueueSize   = 100
	appendTimeout      = 5 * time.Second
)

// ErrorProcess 基础设施错误的流程名，如 ERROR_LOGIN
func ErrorProcess(process string) string {
	return processErrorPrefix + process
}

// Event 审计事件，UserID 为 0 表示账号未知
type Event struct {
	UserID  int64
	Table   string
	Process string
	Detail  string
	IP      string
	At      time.Time
}

// Recorder 审计投递
type Recorder interface {
	Record(e Event)
}

var _ Recorder = (*Dispatcher)(nil)

// Sink 审计落地
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// Dispatcher 基于有界任务池的审计投递器
type Dispatcher struct {
	pool *worker.Pool
	sink Sink
	now  func() time.Time
	log  *zap.Logger
}

// NewDispatcher 创建投递器
func NewDispatcher(sink Sink, cfg *config.AuditConfig) *Dispatcher {
	workers, queue := defaultWorkers, defaultQueueSize
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = min(cfg.Workers, maxWorkers)
		}
		if cfg.QueueSize > 0 {
			queue = cfg.QueueSize
		}
	}
	log := logger.WithFields(zap.String("component", "audit"))
	return &Dispatcher{
		pool: worker.New("audit", workers, queue, worker.WithLogger(log)),
		sink: sink,
		now:  time.Now,
		log:  log,
	}
}

// Record 异步写入，从不阻塞
func (d *Dispatcher) Record(e Event) {
	if e.At.IsZero() {
		e.At = d.now()
	}
	if e.Table == "" {
		e.Table = TableUsers
	}
	d.pool.Submit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, appendTimeout)
		defer cancel()
		if err := d.sink.Append(ctx, e); err != nil {
			d.log.Warn("审计写入失败",
				zap.String("process", e.Process),
				zap.Int64("user_id", e.UserID),
				zap.Error(err),
			)
		}
	})
}

// Dropped 因队列满或已关闭而丢弃的事件数
func (d *Dispatcher) Dropped() int64 {
	return d.pool.Dropped()
}

// Shutdown 等待队列中的事件写完
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	return d.pool.Shutdown(ctx)
}

// GormSink 写入 auditoria 表
type GormSink struct {
	repo dal.Repository[model.AuditEvent]
}

// NewGormSink 创建数据库落地
func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{repo: dal.NewBaseRepository[model.AuditEvent](db)}
}

// Append 追加一条审计记录
func (s *GormSink) Append(ctx context.Context, e Event) error {
	return s.repo.Create(ctx, &model.AuditEvent{
		UserID:    e.UserID,
		Table:     e.Table,
		Process:   e.Process,
		Detail:    e.Detail,
		IP:        e.IP,
		CreatedAt: e.At,
	})
}
