package database

import (
	"context"
	"fmt"
	"time"

	"schooldesk_go/config"
	"schooldesk_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB
var RedisClient *redis.Client

// Connect initializes the database and Redis connections
func Connect(cfg *config.Config) error {
	if err := connectDatabase(cfg); err != nil {
		return err
	}
	connectRedis(cfg)
	return nil
}

func connectDatabase(cfg *config.Config) error {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.AppEnv == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// Retry for transient network issues while MySQL is still starting
	var err error
	for attempt := 1; attempt <= 8; attempt++ {
		DB, err = gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{Logger: gormLogger})
		if err == nil {
			break
		}
		logrus.WithError(err).WithField("attempt", attempt).Warn("Database connect attempt failed")
		time.Sleep(time.Duration(attempt*attempt) * 300 * time.Millisecond)
	}
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	logrus.Info("Database connected successfully")

	sqlDB, err := DB.DB()
	if err != nil {
		return errors.Wrap(err, "get database instance")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(55 * time.Minute)

	if cfg.SkipMigrate {
		logrus.Info("Skipping auto migration")
		return nil
	}
	return AutoMigrate()
}

// AutoMigrate performs automatic database migration
func AutoMigrate() error {
	err := DB.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.Teacher{},
		&models.Fee{},
		&models.FeePayment{},
		&models.Attendance{},
		&models.Mark{},
		&models.Leave{},
		&models.Feedback{},
		&models.EarlyLeave{},
		&models.ActivityLog{},
		&models.Notification{},
		&models.LogArchive{},
	)
	if err != nil {
		return errors.Wrap(err, "auto migration")
	}
	logrus.Info("Database migration completed successfully")
	return nil
}

// connectRedis leaves RedisClient nil when the server is unreachable; callers
// then write straight to the database.
func connectRedis(cfg *config.Config) {
	if cfg.RedisHost == "" {
		logrus.Info("Redis not configured")
		return
	}
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		logrus.WithError(err).Warn("Redis connection failed, continuing without Redis")
		_ = RedisClient.Close()
		RedisClient = nil
		return
	}
	logrus.Info("Redis connected successfully")
}

// GetRedisClient returns the Redis client instance
func GetRedisClient() *redis.Client {
	return RedisClient
}

// Close closes the database and Redis connections
func Close() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing Redis connection")
		}
	}
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		logrus.WithError(err).Warn("Error getting database instance")
		return
	}
	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Warn("Error closing database connection")
		return
	}
	logrus.Info("Database connection closed")
}
