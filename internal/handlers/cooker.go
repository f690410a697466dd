package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ChristiaanHPutter/Skripsie/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusPressed = "pressed"

	errGetState     = "failed to load state"
	errPressButton  = "failed to press button"
	errInvalidIndex = "invalid button index"
	errInputBusy    = "button input queue is full"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetState(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get cooker state
// @Tags         cooker
// @Produce      json
// @Success      200  {object}  models.CookerState
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/cooker/state [get]
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "cooker_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Press a panel button
// @Description  Injects one debounced button edge. Indexes: 0 select, 1 mode, 2 minus, 3 plus, 4 run/stop.
// @Tags         cooker
// @Produce      json
// @Param        index  path  int  true  "Button index (0-4)"
// @Success      200  {object}  map[string]interface{}  "status, button, state"
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/cooker/buttons/{index} [post]
func (h *Handler) pressButton(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidIndex})
		return
	}
	if err := h.services.Control.PressButton(idx); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidButton):
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidIndex})
		case errors.Is(err, service.ErrInputBacklog):
			h.logAndJSONError(c, http.StatusServiceUnavailable, errInputBusy, "button_backlog", err, "button", idx)
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, errPressButton, "button_press_failed", err, "button", idx)
		}
		return
	}
	h.respondWithStatusAndState(c, statusPressed, gin.H{"button": idx})
}
