package kvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one stored key. The column is entry_key because key is reserved
// in MySQL.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName implements gorm's Tabler.
func (Entry) TableName() string { return "kv_entries" }

// SQLBackend stores entries in a single table through gorm.
type SQLBackend struct {
	db      *gorm.DB
	dialect string
}

// OpenSQLite opens (and creates) a SQLite database at path. ":memory:" is
// accepted for tests.
func OpenSQLite(path string, log logger.Logger) (*SQLBackend, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.New(err).
					Component("kvstore").
					Category(errors.CategoryFileIO).
					Context("operation", "create_db_dir").
					Context("path", path).
					Build()
			}
		}
	}
	return openSQL(sqlite.Open(path), KindSQLite, path, log)
}

// OpenMySQL connects to MySQL using dsn.
func OpenMySQL(dsn string, log logger.Logger) (*SQLBackend, error) {
	if dsn == "" {
		return nil, errors.Newf("mysql dsn is required").
			Component("kvstore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return openSQL(mysql.Open(dsn), KindMySQL, "mysql", log)
}

func openSQL(dialector gorm.Dialector, dialect, connInfo string, log logger.Logger) (*SQLBackend, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log, 200*time.Millisecond)})
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open %s database: %w", dialect, err)).
			Component("kvstore").
			Category(errors.CategoryDatabase).
			Context("dialect", dialect).
			Build()
	}

	if dialect == KindSQLite && connInfo == ":memory:" {
		// each pooled connection would get its own empty database
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.New(fmt.Errorf("failed to auto-migrate %s database: %w", dialect, err)).
			Component("kvstore").
			Category(errors.CategoryDatabase).
			Context("dialect", dialect).
			Build()
	}

	if log != nil {
		log.Debug("Key-value database ready", logger.String("dialect", dialect))
	}
	return &SQLBackend{db: db, dialect: dialect}, nil
}

func (s *SQLBackend) dbError(err error, op, key string) error {
	return errors.New(err).
		Component("kvstore").
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Context("dialect", s.dialect).
		Context("key", key).
		Build()
}

func (s *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(key)
		}
		return nil, s.dbError(err, "get", key)
	}
	return []byte(e.Value), nil
}

func (s *SQLBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	e := Entry{Key: key, Value: string(value), UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return s.dbError(err, "set", key)
	}
	return nil
}

func (s *SQLBackend) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return s.dbError(err, "delete", key)
	}
	return nil
}

func (s *SQLBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&Entry{}).Order("entry_key").Pluck("entry_key", &keys).Error; err != nil {
		return nil, s.dbError(err, "keys", "")
	}
	return keys, nil
}

// Close closes the underlying connection pool.
func (s *SQLBackend) Close() error {
	if s.db == nil {
		return errors.Newf("database connection is not initialized").
			Component("kvstore").
			Category(errors.CategoryState).
			Build()
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.dbError(err, "close", "")
	}
	return sqlDB.Close()
}

// gormLogger routes gorm's messages into the module logger.
type gormLogger struct {
	log           logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(log logger.Logger, slow time.Duration) gormlogger.Interface {
	if log == nil {
		return gormlogger.Discard
	}
	return &gormLogger{log: log.Module("gorm"), level: gormlogger.Warn, slowThreshold: slow}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("Query failed",
			logger.Error(err),
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed))
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn("Slow query",
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Trace("Query",
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed))
	}
}
