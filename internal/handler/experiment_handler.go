package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"runlog/internal/db"
	"runlog/internal/model"
	"runlog/internal/service"

	"github.com/gin-gonic/gin"
)

type ExperimentHandler struct {
	store *db.GormStore
}

func NewExperimentHandler(store *db.GormStore) *ExperimentHandler {
	return &ExperimentHandler{store: store}
}

// ListExperiments 所有实验及平均运行时间
func (h *ExperimentHandler) ListExperiments(c *gin.Context) {
	experiments, err := h.store.ListExperiments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experiments": experiments,
		"total":       len(experiments),
	})
}

type runSummary struct {
	model.ExperimentRun
	SubmissionOverheadMs *int64 `json:"submission_overhead_ms"`
	CalculationTimeMs    *int64 `json:"calculation_time_ms"`
	RunTimeMs            *int64 `json:"run_time_ms"`
}

func summarizeRun(run model.ExperimentRun) runSummary {
	return runSummary{
		ExperimentRun:        run,
		SubmissionOverheadMs: millis(run.SubmissionOverhead()),
		CalculationTimeMs:    millis(run.CalculationTime()),
		RunTimeMs:            millis(run.RunTime()),
	}
}

// ListRuns 某个实验的所有 run 及各阶段耗时
func (h *ExperimentHandler) ListRuns(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	runs, err := h.store.ListRuns(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarizeRun(run))
	}

	c.JSON(http.StatusOK, gin.H{
		"experiment_id": id,
		"runs":          summaries,
		"stats":         service.ComputeRunTimeStats(runs),
	})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 id: " + c.Param("id")})
		return 0, false
	}
	return uint(id), true
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func millis(d time.Duration, ok bool) *int64 {
	if !ok {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}
