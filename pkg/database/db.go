package database

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Debug    bool
}

var (
	DB      *gorm.DB
	once    sync.Once
	openErr error
)

// DSN builds a libpq style connection string.
func (o Options) DSN() string {
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		o.Host, o.User, o.Password, o.Name, o.Port, sslMode,
	)
}

// Config is shared by every dialector so constraint violations surface as gorm.ErrDuplicatedKey.
func Config(debug bool) *gorm.Config {
	cfg := &gorm.Config{TranslateError: true}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	} else {
		cfg.Logger = logger.Default.LogMode(logger.Warn)
	}
	return cfg
}

func Connect(opts Options) (*gorm.DB, error) {
	once.Do(func() {
		db, err := gorm.Open(postgres.Open(opts.DSN()), Config(opts.Debug))
		if err != nil {
			openErr = fmt.Errorf("failed to connect database: %w", err)
			return
		}

		sqlDB, err := db.DB()
		if err != nil {
			openErr = err
			return
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)

		DB = db
	})

	return DB, openErr
}

func GetDB() *gorm.DB {
	return DB
}
