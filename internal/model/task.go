package model

import (
	"strings"
	"time"
)

// Task 一次运行中的一个逻辑阶段，task_type 在同一 run 内唯一
type Task struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExperimentRunID  uint   `gorm:"not null;uniqueIndex:idx_task_run_type" json:"experiment_run_id"`
	TaskType         string `gorm:"type:varchar(100);not null;uniqueIndex:idx_task_run_type" json:"task_type"`
	NumberOfSubtasks int    `json:"number_of_subtasks"`

	Instances []*TaskInstance `gorm:"foreignKey:TaskID" json:"instances,omitempty"`
}

// InstanceBySubtask 按子任务编号查找实例
func (t *Task) InstanceBySubtask(subtask int) *TaskInstance {
	for _, inst := range t.Instances {
		if inst.SubtaskNumber == subtask {
			return inst
		}
	}
	return nil
}

// TaskInstance Task 的一个并行子执行（分区）
type TaskInstance struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TaskID        uint `gorm:"not null;uniqueIndex:idx_instance_task_subtask" json:"task_id"`
	SubtaskNumber int  `gorm:"not null;uniqueIndex:idx_instance_task_subtask" json:"subtask_number"`

	Events []TaskInstanceEvent `gorm:"foreignKey:TaskInstanceID" json:"events,omitempty"`
}

// EventByName 大小写不敏感，返回第一个同名事件
func (ti *TaskInstance) EventByName(name string) *TaskInstanceEvent {
	for i := range ti.Events {
		if strings.EqualFold(ti.Events[i].Name, name) {
			return &ti.Events[i]
		}
	}
	return nil
}

// AddEvent 追加事件；与已有事件完全相同（名称和值）时忽略，返回是否追加
func (ti *TaskInstance) AddEvent(ev TaskInstanceEvent) bool {
	for i := range ti.Events {
		if ti.Events[i].Same(ev) {
			return false
		}
	}
	ev.TaskInstanceID = ti.ID
	ti.Events = append(ti.Events, ev)
	return true
}

// DeploymentLatency 从 deploying 到 running 的耗时（flink 状态事件）
func (ti *TaskInstance) DeploymentLatency() (time.Duration, bool) {
	deploying := ti.firstTimestampContaining("deploying")
	running := ti.firstTimestampContaining("running")
	return between(deploying, running)
}

// Span 最早与最晚带时间戳事件之间的跨度
func (ti *TaskInstance) Span() (time.Duration, bool) {
	var first, last *time.Time
	for i := range ti.Events {
		ts := ti.Events[i].ValueTimestamp
		if ts == nil {
			continue
		}
		if first == nil || ts.Before(*first) {
			first = ts
		}
		if last == nil || ts.After(*last) {
			last = ts
		}
	}
	return between(first, last)
}

func (ti *TaskInstance) firstTimestampContaining(fragment string) *time.Time {
	for i := range ti.Events {
		ev := &ti.Events[i]
		if ev.ValueTimestamp != nil && strings.Contains(strings.ToLower(ev.Name), fragment) {
			return ev.ValueTimestamp
		}
	}
	return nil
}

// TaskInstanceEvent 挂在 TaskInstance 上的一条命名事件，四个值字段至多一个非空
type TaskInstanceEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TaskInstanceID uint   `gorm:"not null;index" json:"task_instance_id"`
	Name           string `gorm:"type:varchar(200);not null;index" json:"name"`

	ValueInt       *int64     `json:"value_int,omitempty"`
	ValueDouble    *float64   `json:"value_double,omitempty"`
	ValueTimestamp *time.Time `json:"value_timestamp,omitempty"`
	ValueVarchar   *string    `gorm:"type:text" json:"value_varchar,omitempty"`
}

// MaxEventNameLength name 列的宽度（字符数）
const MaxEventNameLength = 200

// eventName 超长的名字截断到列宽，重复解析时截断结果一致，去重照常生效
func eventName(name string) string {
	if len(name) <= MaxEventNameLength {
		return name
	}
	runes := []rune(name)
	if len(runes) <= MaxEventNameLength {
		return name
	}
	return string(runes[:MaxEventNameLength])
}

func NewTimestampEvent(name string, ts time.Time) TaskInstanceEvent {
	return TaskInstanceEvent{Name: eventName(name), ValueTimestamp: &ts}
}

func NewIntEvent(name string, v int64) TaskInstanceEvent {
	return TaskInstanceEvent{Name: eventName(name), ValueInt: &v}
}

func NewDoubleEvent(name string, v float64) TaskInstanceEvent {
	return TaskInstanceEvent{Name: eventName(name), ValueDouble: &v}
}

func NewStringEvent(name string, v string) TaskInstanceEvent {
	return TaskInstanceEvent{Name: eventName(name), ValueVarchar: &v}
}

// Same 名称与值都相同
func (e TaskInstanceEvent) Same(o TaskInstanceEvent) bool {
	if e.Name != o.Name {
		return false
	}
	switch {
	case e.ValueTimestamp != nil || o.ValueTimestamp != nil:
		return e.ValueTimestamp != nil && o.ValueTimestamp != nil && e.ValueTimestamp.Equal(*o.ValueTimestamp)
	case e.ValueInt != nil || o.ValueInt != nil:
		return e.ValueInt != nil && o.ValueInt != nil && *e.ValueInt == *o.ValueInt
	case e.ValueDouble != nil || o.ValueDouble != nil:
		return e.ValueDouble != nil && o.ValueDouble != nil && *e.ValueDouble == *o.ValueDouble
	case e.ValueVarchar != nil || o.ValueVarchar != nil:
		return e.ValueVarchar != nil && o.ValueVarchar != nil && *e.ValueVarchar == *o.ValueVarchar
	}
	return true
}
