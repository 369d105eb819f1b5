package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"runlog/internal/db"
	"runlog/internal/model"

	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	store *db.GormStore
}

func NewRunHandler(store *db.GormStore) *RunHandler {
	return &RunHandler{store: store}
}

type instanceView struct {
	*model.TaskInstance
	DeploymentLatencyMs *int64 `json:"deployment_latency_ms"`
	SpanMs              *int64 `json:"span_ms"`
}

type taskView struct {
	*model.Task
	Instances []instanceView `json:"instances"`
}

// GetRun 单个 run 的完整任务图。
// ?task_type= 只返回该 Task，再加 &subtask= 只返回该子任务实例。
func (h *RunHandler) GetRun(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	run, err := h.store.GetRun(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	selected, ok := selectTasks(c, run)
	if !ok {
		return
	}

	tasks := make([]taskView, 0, len(selected))
	for _, task := range selected {
		tasks = append(tasks, newTaskView(task))
	}

	summary := summarizeRun(*run)
	summary.Tasks = nil
	c.JSON(http.StatusOK, gin.H{
		"run":   summary,
		"tasks": tasks,
	})
}

// selectTasks 按查询参数筛选，写出错误响应时返回 false
func selectTasks(c *gin.Context, run *model.ExperimentRun) ([]*model.Task, bool) {
	taskType := c.Query("task_type")
	rawSubtask, hasSubtask := c.GetQuery("subtask")
	if taskType == "" {
		if hasSubtask {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subtask 需要和 task_type 一起使用"})
			return nil, false
		}
		return run.Tasks, true
	}

	task := run.TaskByType(taskType)
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("run %d 没有 task %s", run.ID, taskType)})
		return nil, false
	}
	if !hasSubtask {
		return []*model.Task{task}, true
	}

	subtask, err := strconv.Atoi(rawSubtask)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 subtask: " + rawSubtask})
		return nil, false
	}
	inst := task.InstanceBySubtask(subtask)
	if inst == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("task %s 没有子任务 %d", taskType, subtask)})
		return nil, false
	}
	only := *task
	only.Instances = []*model.TaskInstance{inst}
	return []*model.Task{&only}, true
}

func newTaskView(task *model.Task) taskView {
	tv := taskView{Task: task, Instances: make([]instanceView, 0, len(task.Instances))}
	for _, inst := range task.Instances {
		tv.Instances = append(tv.Instances, instanceView{
			TaskInstance:        inst,
			DeploymentLatencyMs: millis(inst.DeploymentLatency()),
			SpanMs:              millis(inst.Span()),
		})
	}
	return tv
}
