package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid    = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid      = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errChamberInvalid = "invalid 'chamber' index"
	errListLogs       = "failed to load logs"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List journal events
// @Description  Filter events by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive. Chamber 0 or omitted means all chambers.
// @Tags         logs
// @Produce      json
// @Param        from     query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to       query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        type     query   string  false  "Event type"  Enums(STARTED,STOPPED,TEMP_REACHED,COMPLETE,TARGETS_SET)
// @Param        chamber  query   int     false  "Chamber number 1-3; omit or 0 for all"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
func (h *Handler) getLogs(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		from    time.Time
		to      time.Time
		chamber int
		// Normalize event type: trim spaces and uppercase to match journal rows.
		eventType = strings.ToUpper(strings.TrimSpace(c.Query("type")))
		err       error
	)
	// Parse 'from' (optional)
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	// Parse 'to' (optional). A bare date means the whole day, so push it to
	// end-of-day inclusive.
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	// Parse 'chamber' (optional). Range checks live in the service.
	if qs := c.Query("chamber"); qs != "" {
		chamber, err = strconv.Atoi(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errChamberInvalid})
			return
		}
	}
	events, err := h.services.EventLog.List(ctx, service.LogFilter{
		From:    from,
		To:      to,
		Type:    eventType,
		Chamber: chamber,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeRange) || errors.Is(err, service.ErrInvalidChamberFilter) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errListLogs, "logs_list_failed", err,
			"from", from, "to", to, "type", eventType, "chamber", chamber)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	// Try multiple accepted formats, normalizing to UTC.
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
