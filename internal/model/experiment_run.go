package model

import (
	"time"

	"gorm.io/datatypes"
)

// ExperimentRun 一个实验的一次具体执行（run 序号取自 state.json 的 name 后缀）
type ExperimentRun struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExperimentID uint        `gorm:"not null;uniqueIndex:idx_run_experiment_run" json:"experiment_id"`
	Experiment   *Experiment `json:"experiment,omitempty"`
	Run          int         `gorm:"not null;uniqueIndex:idx_run_experiment_run" json:"run"`

	// 作业提交 / 开始调度 / 结束，日志中没有出现时为 NULL
	SubmitTime *time.Time `json:"submit_time"`
	Deployed   *time.Time `json:"deployed"`
	Finished   *time.Time `json:"finished"`

	// 原始 state.json，便于追溯
	Descriptor datatypes.JSON `json:"descriptor,omitempty"`

	Tasks []*Task `gorm:"foreignKey:ExperimentRunID" json:"tasks,omitempty"`
}

// SubmissionOverhead 提交到开始调度的耗时
func (r *ExperimentRun) SubmissionOverhead() (time.Duration, bool) {
	return between(r.SubmitTime, r.Deployed)
}

// CalculationTime 开始调度到作业结束的耗时
func (r *ExperimentRun) CalculationTime() (time.Duration, bool) {
	return between(r.Deployed, r.Finished)
}

// RunTime 提交到结束的总耗时（平均运行时间按它计算）
func (r *ExperimentRun) RunTime() (time.Duration, bool) {
	return between(r.SubmitTime, r.Finished)
}

// TaskByType 按 task_type 查找已加载的 Task
func (r *ExperimentRun) TaskByType(taskType string) *Task {
	for _, t := range r.Tasks {
		if t.TaskType == taskType {
			return t
		}
	}
	return nil
}

func between(from, to *time.Time) (time.Duration, bool) {
	if from == nil || to == nil {
		return 0, false
	}
	return to.Sub(*from), true
}
