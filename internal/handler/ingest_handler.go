package handler

import (
	"errors"
	"net/http"

	"runlog/internal/service"

	"github.com/gin-gonic/gin"
)

type IngestHandler struct {
	manager *service.Manager
}

func NewIngestHandler(manager *service.Manager) *IngestHandler {
	return &IngestHandler{manager: manager}
}

// Ingest 解析服务器本地目录下的实验结果
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req struct {
		Root          string `json:"root" binding:"required"`
		SkipInstances bool   `json:"skip_instances"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.manager.ParsePath(c.Request.Context(), req.Root, req.SkipInstances)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrRunDirectoryInvalid) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error(), "report": report})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report": report,
	})
}
