package db

import (
	"context"
	"errors"
	"fmt"

	"runlog/internal/model"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// ListExperiments 所有实验（带 suite 和 system）
func (s *GormStore) ListExperiments(ctx context.Context) ([]model.Experiment, error) {
	var experiments []model.Experiment
	err := s.db.WithContext(ctx).
		Preload("Suite").
		Preload("System").
		Order("id").
		Find(&experiments).Error
	if err != nil {
		return nil, fmt.Errorf("查询实验失败: %w", err)
	}
	return experiments, nil
}

// ListRuns 某个实验的全部 run，按 run 序号排序
func (s *GormStore) ListRuns(ctx context.Context, experimentID uint) ([]model.ExperimentRun, error) {
	var exp model.Experiment
	if err := s.db.WithContext(ctx).First(&exp, experimentID).Error; err != nil {
		return nil, notFound(err, "实验", experimentID)
	}

	var runs []model.ExperimentRun
	if err := s.db.WithContext(ctx).Where("experiment_id = ?", experimentID).Order("run").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询 run 失败: %w", err)
	}
	return runs, nil
}

// GetRun 单个 run 及其完整的任务图
func (s *GormStore) GetRun(ctx context.Context, id uint) (*model.ExperimentRun, error) {
	var run model.ExperimentRun
	if err := s.db.WithContext(ctx).Preload("Experiment").First(&run, id).Error; err != nil {
		return nil, notFound(err, "run", id)
	}
	if err := s.LoadRunGraph(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d 不存在: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("查询%s失败: %w", what, err)
}
