package livehttp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"aitrader/internal/logger"
)

// Router 暴露实盘状态与决策审计查询。
type Router struct {
	cycles    CycleSource
	scheduler SchedulerSource
	logs      DecisionLog
}

func NewRouter(cycles CycleSource, sched SchedulerSource, logs DecisionLog) *Router {
	return &Router{cycles: cycles, scheduler: sched, logs: logs}
}

// Register 将 /api/live 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/decisions", r.handleDecisions)
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := StatusResponse{Symbol: r.cycles.Symbol()}
	if r.scheduler != nil {
		st := r.scheduler.Stats()
		resp.Scheduler = &st
	}
	if last, ok := r.cycles.Last(); ok {
		resp.LastCycle = &last
	}
	if r.logs != nil {
		counts, err := r.logs.CountByOutcome(c.Request.Context())
		if err != nil {
			logger.Warnf("live http: outcome counts: %v", err)
		} else {
			resp.Outcomes = counts
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleDecisions(c *gin.Context) {
	if r.logs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "决策审计未启用"})
		return
	}
	limit, _ := strconv.Atoi(strings.TrimSpace(c.DefaultQuery("limit", "50")))
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	items, err := r.logs.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if c.Query("payload") != "1" {
		for i := range items {
			items[i].Payload = ""
		}
	}
	c.JSON(http.StatusOK, DecisionsResponse{Items: items, Limit: limit})
}
