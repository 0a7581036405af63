package handlers

import (
	"time"

	"bibliotrack/internal/core/services"
	"bibliotrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LogHandler handles audit log endpoints
type LogHandler struct {
	auditService *services.AuditService
}

// NewLogHandler creates a new log handler
func NewLogHandler(auditService *services.AuditService) *LogHandler {
	return &LogHandler{
		auditService: auditService,
	}
}

// RecentLogs returns the newest audit entries
// @Summary Recent logs
// @Description List the newest audit entries. Admin only.
// @Tags Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries (default 50, cap 1000)"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /logs/recent [get]
func (h *LogHandler) RecentLogs(c *fiber.Ctx) error {
	entries, err := h.auditService.Recent(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return response.InternalServerError(c, "Failed to list logs")
	}

	return response.Success(c, "Logs retrieved successfully", fiber.Map{
		"logs": entries,
	})
}

// CountByLevel counts audit entries at one level
// @Summary Count logs by level
// @Description Count entries at the given level. Unknown level names count as DEBUG. Admin only.
// @Tags Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param level path string true "Log level"
// @Success 200 {object} response.Response
// @Router /logs/level/{level}/count [get]
func (h *LogHandler) CountByLevel(c *fiber.Ctx) error {
	level := c.Params("level")

	count, err := h.auditService.CountByLevel(c.UserContext(), level)
	if err != nil {
		return response.InternalServerError(c, "Failed to count logs")
	}

	return response.Success(c, "Log count retrieved successfully", fiber.Map{
		"level": level,
		"count": count,
	})
}

// LogsByRange lists audit entries between two instants
// @Summary Logs by time range
// @Description List entries between from and to inclusive, RFC3339 timestamps. Admin only.
// @Tags Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param from query string true "Range start (RFC3339)"
// @Param to query string true "Range end (RFC3339)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /logs/range [get]
func (h *LogHandler) LogsByRange(c *fiber.Ctx) error {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return response.BadRequest(c, "Invalid from timestamp, use RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return response.BadRequest(c, "Invalid to timestamp, use RFC3339")
	}
	if to.Before(from) {
		return response.BadRequest(c, "Range end is before range start")
	}

	entries, err := h.auditService.ListByRange(c.UserContext(), from, to)
	if err != nil {
		return response.InternalServerError(c, "Failed to list logs")
	}

	return response.Success(c, "Logs retrieved successfully", fiber.Map{
		"logs": entries,
	})
}

// LogsByUser lists audit entries recorded for one username
// @Summary Logs by user
// @Description List entries attributed to the named user. Admin only.
// @Tags Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} response.Response
// @Router /logs/user/{username} [get]
func (h *LogHandler) LogsByUser(c *fiber.Ctx) error {
	entries, err := h.auditService.ListByUser(c.UserContext(), c.Params("username"))
	if err != nil {
		return response.InternalServerError(c, "Failed to list logs")
	}

	return response.Success(c, "Logs retrieved successfully", fiber.Map{
		"logs": entries,
	})
}

// SearchLogs finds audit entries by message content
// @Summary Search logs
// @Description List entries whose message contains the term, case-insensitive. Admin only.
// @Tags Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search term"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /logs/search [get]
func (h *LogHandler) SearchLogs(c *fiber.Ctx) error {
	term := c.Query("q")
	if term == "" {
		return response.BadRequest(c, "Search term is required")
	}

	entries, err := h.auditService.Search(c.UserContext(), term)
	if err != nil {
		return response.InternalServerError(c, "Failed to search logs")
	}

	return response.Success(c, "Logs retrieved successfully", fiber.Map{
		"logs": entries,
	})
}

// LogStatistics summarizes the audit log by level
// @Summary Log statistics
// @Description Per-level entry counts plus the total. Admin only.
// @Tags Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /logs/statistics [get]
func (h *LogHandler) LogStatistics(c *fiber.Ctx) error {
	stats, err := h.auditService.Statistics(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, "Failed to get log statistics")
	}

	return response.Success(c, "Log statistics retrieved successfully", stats)
}
