package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	obscontext "github.com/uaizouk/backoffice/internal/observability/context"
	"github.com/uaizouk/backoffice/internal/scheduler"
	"go.uber.org/zap"
)

// RunJob runs the job synchronously. The run is detached from the request
// so a dropped connection does not cancel it.
func (s *Server) RunJob(c *gin.Context) {
	name := c.Param("name")
	ctx := context.WithoutCancel(c.Request.Context())
	ctx = obscontext.WithCorrelationID(ctx, ulid.Make().String())

	result, err := s.runner.RunJob(ctx, name)
	if err != nil {
		s.log.Warn("admin job run failed", zap.String("job", name), zap.Error(err))
		if result.RunID != "" {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  errorPayload{Type: "job_failed", Message: err.Error()},
				"result": result,
			})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) LastJobResult(c *gin.Context) {
	name := c.Param("name")
	result, ok := s.runner.LastResult(name)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

var _ JobRunner = (*scheduler.Scheduler)(nil)
