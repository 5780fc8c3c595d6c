package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fenilmodi00/ipo-agent/services"
	"github.com/fenilmodi00/ipo-agent/shared"
)

// StatusHandler exposes read-only views over the agent's tracked state and
// runtime metrics. The poll loop owns all writes; these endpoints only read.
type StatusHandler struct {
	repository *services.StateRepository
	metrics    *shared.AgentMetrics
}

func NewStatusHandler(repository *services.StateRepository, metrics *shared.AgentMetrics) *StatusHandler {
	return &StatusHandler{
		repository: repository,
		metrics:    metrics,
	}
}

// GetHealth reports process liveness
func (h *StatusHandler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// GetStatus reports uptime, cycle metrics, and tracked record counts
func (h *StatusHandler) GetStatus(c *fiber.Ctx) error {
	snapshot := h.metrics.GetSnapshot()

	return c.JSON(fiber.Map{
		"success":        true,
		"uptime":         time.Since(snapshot.StartedAt).String(),
		"tracked_ipos":   h.repository.RecordCount(),
		"fetch_runs":     len(h.repository.FetchRuns()),
		"metrics":        &snapshot,
		"avg_cycle_time": h.metrics.AverageCycleDuration().String(),
	})
}

// GetIPOs lists every tracked IPO record
func (h *StatusHandler) GetIPOs(c *fiber.Ctx) error {
	records := h.repository.AllRecords()

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(records),
		"data":    records,
	})
}

// GetIPOByKey returns one tracked IPO record by its identity key
func (h *StatusHandler) GetIPOByKey(c *fiber.Ctx) error {
	key := c.Params("key")

	record, tracked := h.repository.Record(key)
	if !tracked {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "IPO not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// GetFetchRuns lists the recorded fetch provenance, most recent last
func (h *StatusHandler) GetFetchRuns(c *fiber.Ctx) error {
	runs := h.repository.FetchRuns()

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(runs),
		"data":    runs,
	})
}
