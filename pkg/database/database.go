package database

import (
	"context"
	"fmt"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DataSource describes one MySQL endpoint's connection credentials.
type DataSource struct {
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Host     string `json:"host,omitempty"`
	DBName   string `json:"name,omitempty"`
}

// Config configures the single MySQL connection the alert repository
// writes through.
type Config struct {
	DataSource            DataSource    `json:"dataSource"`
	MaxIdleConnections    int           `json:"maxIdleConnections,omitempty"`
	MaxOpenConnections    int           `json:"maxOpenConnections,omitempty"`
	MaxConnectionLifeTime time.Duration `json:"maxConnectionLifeTime,omitempty"`
	MaxConnectionIdleTime time.Duration `json:"maxConnectionIdleTime,omitempty"`
	DisableTLS            bool          `json:"disableTLS,omitempty"`
	Debug                 bool          `json:"debug,omitempty"`
}

// Connection wraps the established gorm handle.
type Connection struct {
	DB *gorm.DB
}

// Open establishes a connection to cfg's MySQL endpoint, applying pool
// limits and returning a cleanup func that closes the underlying
// sql.DB.
func Open(ctx context.Context, cfg Config) (*Connection, func(), error) {
	logger := ctxzap.Extract(ctx).Sugar()
	defer logger.Infof("database: connected using user %s at %v", cfg.DataSource.User, cfg.DataSource.Host)

	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DataSource.User, cfg.DataSource.Password, cfg.DataSource.Host, cfg.DataSource.DBName)

	gormLog := gormlogger.Default
	if !cfg.Debug {
		gormLog = gormlogger.Discard
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		Logger:      gormLog,
	})
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, errors.Wrap(err, "database: could not set sql.DB params")
	}
	sqlDB.SetConnMaxIdleTime(cfg.MaxConnectionIdleTime)
	sqlDB.SetConnMaxLifetime(cfg.MaxConnectionLifeTime)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			logger.Panicf("database: failed to close db connections %v", err)
		}
	}

	return &Connection{DB: db}, cleanup, nil
}
