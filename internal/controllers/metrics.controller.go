package controllers

import (
	"net/http"
	"time"

	"nigran/internal/models"
	"nigran/internal/services"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MetricsController serves the synchronous request/response path: a full
// snapshot on demand, plus per-category readings. Used as a degraded
// fallback when the persistent channel cannot be established.
type MetricsController struct {
	cache   *services.CacheManager
	history *services.HistoryCollector
}

func NewMetricsController(cache *services.CacheManager, history *services.HistoryCollector) *MetricsController {
	return &MetricsController{cache: cache, history: history}
}

// GetStats returns a complete snapshot in the exact shape of a full
// stats_update message.
func (mc *MetricsController) GetStats(c *gin.Context) {
	snap := mc.cache.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.WebSocketMessage{
		Type:        models.MsgStatsUpdate,
		Timestamp:   snap.Timestamp,
		Incremental: false,
		Data:        data,
	})
}

func (mc *MetricsController) GetCPU(c *gin.Context) {
	cpu, err := mc.cache.CPU()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cpu)
}

func (mc *MetricsController) GetMemory(c *gin.Context) {
	memory, err := mc.cache.Memory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, memory)
}

func (mc *MetricsController) GetDisk(c *gin.Context) {
	disk, err := mc.cache.Disk()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, disk)
}

func (mc *MetricsController) GetNetwork(c *gin.Context) {
	network, err := mc.cache.Network()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, network)
}

func (mc *MetricsController) GetHealth(c *gin.Context) {
	health, err := mc.cache.Health()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, health)
}

func (mc *MetricsController) GetSystem(c *gin.Context) {
	system, err := mc.cache.System()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, system)
}

// GetHistory returns the in-memory rolling window; ?duration accepts Go
// duration strings, default 10m.
func (mc *MetricsController) GetHistory(c *gin.Context) {
	duration := 10 * time.Minute
	if raw := c.Query("duration"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration: " + raw})
			return
		}
		duration = parsed
	}
	c.JSON(http.StatusOK, mc.history.Window(duration))
}
