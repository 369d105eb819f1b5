package model

import (
	"time"
)

// System 执行引擎（flink / spark）及其版本
type System struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string `gorm:"type:varchar(100);not null;uniqueIndex:idx_system_name_version" json:"name"`
	Version string `gorm:"type:varchar(100);not null;uniqueIndex:idx_system_name_version" json:"version"`
}

// ExperimentSuite 一组实验
type ExperimentSuite struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `gorm:"type:varchar(200);not null;uniqueIndex" json:"name"`
}

// Experiment 一个基准实验定义：属于一个 suite，运行在一个 system 上
type Experiment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string           `gorm:"type:varchar(200);not null;uniqueIndex:idx_experiment_identity" json:"name"`
	SuiteID  uint             `gorm:"not null;uniqueIndex:idx_experiment_identity" json:"suite_id"`
	Suite    *ExperimentSuite `json:"suite,omitempty"`
	SystemID uint             `gorm:"not null;uniqueIndex:idx_experiment_identity" json:"system_id"`
	System   *System          `json:"system,omitempty"`

	// 平均运行时间（毫秒），由聚合步骤写入；没有任何 run 时保持 NULL
	AverageRunTime *int64 `json:"average_run_time"`

	Runs []ExperimentRun `gorm:"foreignKey:ExperimentID" json:"runs,omitempty"`
}
