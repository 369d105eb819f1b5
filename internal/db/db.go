package db

import (
	"fmt"
	"log"

	"runlog/internal/config"
	"runlog/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 批量插入事件时每条 INSERT 的行数上限
const createBatchSize = 500

// InitDB 按配置连接数据库并自动迁移表结构
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.Database.MySQLDSN())
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		CreateBatchSize: createBatchSize,
		Logger:          logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if cfg.Database.Driver != "mysql" {
		if err := SerializeSQLite(db); err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("数据库初始化成功 (driver=%s)", cfg.Database.Driver)
	return db, nil
}

// SerializeSQLite sqlite 同一时间只允许一个写事务，连接池限制为 1，
// 并行的 run 事务在连接上排队而不是返回 database is locked
func SerializeSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// Migrate 自动迁移
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.System{},
		&model.ExperimentSuite{},
		&model.Experiment{},
		&model.ExperimentRun{},
		&model.Task{},
		&model.TaskInstance{},
		&model.TaskInstanceEvent{},
	); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}
