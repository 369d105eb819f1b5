package db

import (
	"context"
	"fmt"

	"runlog/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 解析引擎使用的持久化操作。解析过程只操作内存中的实体，
// 通过这几个方法写入存储；一次 Transaction 内的修改要么全部提交要么全部回滚。
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	// Save 插入新记录（可以是切片，按批插入）
	Save(ctx context.Context, record any) error
	// Update 按主键保存已有记录，不级联关联
	Update(ctx context.Context, record any) error
	// Query 按列等值条件查询，conds 为空时查全部
	Query(ctx context.Context, dest any, conds map[string]any) error
	// LoadRunGraph 加载 run 已有的 Task/TaskInstance/Event
	LoadRunGraph(ctx context.Context, run *model.ExperimentRun) error
}

type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Save(ctx context.Context, record any) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error; err != nil {
		return fmt.Errorf("保存记录失败: %w", err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, record any) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(record).Error; err != nil {
		return fmt.Errorf("更新记录失败: %w", err)
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, dest any, conds map[string]any) error {
	query := s.db.WithContext(ctx)
	if len(conds) > 0 {
		query = query.Where(conds)
	}
	if err := query.Order("id").Find(dest).Error; err != nil {
		return fmt.Errorf("查询失败: %w", err)
	}
	return nil
}

func (s *GormStore) LoadRunGraph(ctx context.Context, run *model.ExperimentRun) error {
	var tasks []*model.Task
	err := s.db.WithContext(ctx).
		Where("experiment_run_id = ?", run.ID).
		Preload("Instances", func(db *gorm.DB) *gorm.DB { return db.Order("subtask_number") }).
		Preload("Instances.Events", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		return fmt.Errorf("加载 run %d 的任务失败: %w", run.ID, err)
	}
	run.Tasks = tasks
	return nil
}
