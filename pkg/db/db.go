// Package db 提供 GORM 初始化、连接池配置、事务助手与 slog 日志适配
package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wyfcoding/investplan/pkg/logger"
)

// Config 数据库配置
type Config struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int
	LogEnabled         bool
	SlowQueryThreshold int
}

// DB 数据库实例包装
type DB struct {
	*gorm.DB
	config Config
}

// TxManager 事务边界接口
// 应用服务通过该接口开启事务，fn 收到携带事务句柄的 context，
// 仓储层用 FromContext 取回事务句柄，保证一组读写的原子性。
type TxManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Init 初始化数据库连接
func Init(cfg Config) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: newSlogAdapter(cfg.LogEnabled, time.Duration(cfg.SlowQueryThreshold)*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info(context.Background(), "database connected", "driver", cfg.Driver)

	return &DB{DB: gdb, config: cfg}, nil
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InTx 在单个数据库事务内执行 fn，自动提交或回滚
// fn 内通过 OnCommit 注册的回调只在事务成功提交后执行
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	hooks := &commitHooks{}
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := WithTx(ctx, tx)
		txCtx = context.WithValue(txCtx, commitHooksKey{}, hooks)
		return fn(txCtx)
	})
	if err != nil {
		return err
	}
	hooks.run(ctx)
	return nil
}

type txContextKey struct{}

type commitHooksKey struct{}

type commitHooks struct {
	fns []func(context.Context)
}

func (h *commitHooks) run(ctx context.Context) {
	for _, fn := range h.fns {
		fn(ctx)
	}
}

// OnCommit 注册事务提交后执行的回调；不在事务内时立即执行
// 回滚的事务不会执行已注册的回调
func OnCommit(ctx context.Context, fn func(ctx context.Context)) {
	if hooks, ok := ctx.Value(commitHooksKey{}).(*commitHooks); ok {
		hooks.fns = append(hooks.fns, fn)
		return
	}
	fn(ctx)
}

// WithTx 将事务句柄写入 context
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// FromContext 取回 context 中的事务句柄，没有则返回 fallback
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback
}

// InTransaction 判断 context 是否携带事务句柄
func InTransaction(ctx context.Context) bool {
	tx, ok := ctx.Value(txContextKey{}).(*gorm.DB)
	return ok && tx != nil
}

// slogAdapter 将 GORM 日志桥接到 slog
type slogAdapter struct {
	enabled            bool
	slowQueryThreshold time.Duration
}

func newSlogAdapter(enabled bool, slowQueryThreshold time.Duration) *slogAdapter {
	return &slogAdapter{enabled: enabled, slowQueryThreshold: slowQueryThreshold}
}

func (l *slogAdapter) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l *slogAdapter) Info(ctx context.Context, msg string, data ...any) {
	if l.enabled {
		logger.Info(ctx, msg, "data", data)
	}
}

func (l *slogAdapter) Warn(ctx context.Context, msg string, data ...any) {
	logger.Warn(ctx, msg, "data", data)
}

func (l *slogAdapter) Error(ctx context.Context, msg string, data ...any) {
	logger.Error(ctx, msg, "data", data)
}

func (l *slogAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sqlStr, rows := fc()

	args := []any{"duration", elapsed, "rows", rows, "sql", sqlStr}
	switch {
	case err != nil:
		logger.Error(ctx, "sql execution failed", append(args, "error", err)...)
	case elapsed > l.slowQueryThreshold:
		logger.Warn(ctx, "slow query detected", args...)
	case l.enabled:
		logger.Debug(ctx, "sql executed", args...)
	}
}
