package parser

import (
	"time"

	"runlog/internal/model"
)

type instanceKey struct {
	taskType string
	subtask  int
}

// RunGraph 一个 run 的实体图：按 task_type 和 (task_type, subtask) 建索引，
// 查找或创建都是 O(1)。图从存储中已有的记录初始化，所以重复解析同一份日志
// 不会产生重复的 Task / TaskInstance。
type RunGraph struct {
	run       *model.ExperimentRun
	tasks     map[string]*model.Task
	instances map[instanceKey]*model.TaskInstance
	added     int
}

func NewRunGraph(run *model.ExperimentRun) *RunGraph {
	g := &RunGraph{
		run:       run,
		tasks:     make(map[string]*model.Task, len(run.Tasks)),
		instances: make(map[instanceKey]*model.TaskInstance),
	}
	for _, t := range run.Tasks {
		g.tasks[t.TaskType] = t
		for _, inst := range t.Instances {
			g.instances[instanceKey{t.TaskType, inst.SubtaskNumber}] = inst
		}
	}
	return g
}

func (g *RunGraph) ExperimentRun() *model.ExperimentRun { return g.run }

func (g *RunGraph) SetSubmitTime(ts time.Time) { g.run.SubmitTime = &ts }

func (g *RunGraph) SetDeployed(ts time.Time) { g.run.Deployed = &ts }

func (g *RunGraph) SetFinished(ts time.Time) { g.run.Finished = &ts }

// Tasks 按创建顺序（先是存储中已有的）返回全部 Task
func (g *RunGraph) Tasks() []*model.Task { return g.run.Tasks }

func (g *RunGraph) TaskByType(taskType string) *model.Task {
	return g.tasks[taskType]
}

// EnsureTask 查找或创建 Task，返回是否新建
func (g *RunGraph) EnsureTask(taskType string) (*model.Task, bool) {
	if t, ok := g.tasks[taskType]; ok {
		return t, false
	}
	t := &model.Task{ExperimentRunID: g.run.ID, TaskType: taskType}
	g.tasks[taskType] = t
	g.run.Tasks = append(g.run.Tasks, t)
	return t, true
}

// EnsureInstance 查找或创建子任务实例，返回是否新建
func (g *RunGraph) EnsureInstance(task *model.Task, subtask int) (*model.TaskInstance, bool) {
	key := instanceKey{task.TaskType, subtask}
	if inst, ok := g.instances[key]; ok {
		return inst, false
	}
	inst := &model.TaskInstance{TaskID: task.ID, SubtaskNumber: subtask}
	g.instances[key] = inst
	task.Instances = append(task.Instances, inst)
	task.NumberOfSubtasks = len(task.Instances)
	return inst, true
}

// AddEvent 给实例追加事件，完全相同的事件只记一次
func (g *RunGraph) AddEvent(inst *model.TaskInstance, ev model.TaskInstanceEvent) bool {
	if inst.AddEvent(ev) {
		g.added++
		return true
	}
	return false
}

type GraphCounts struct {
	Tasks     int `json:"tasks"`
	Instances int `json:"instances"`
	Events    int `json:"events"`
	// 本次解析新增的事件数
	AddedEvents int `json:"added_events"`
}

func (g *RunGraph) Counts() GraphCounts {
	c := GraphCounts{Tasks: len(g.tasks), Instances: len(g.instances), AddedEvents: g.added}
	for _, inst := range g.instances {
		c.Events += len(inst.Events)
	}
	return c
}
