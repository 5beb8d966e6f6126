package handler

import (
	"strconv"

	"custody-bridge/internal/adapter/http/dto"
	"custody-bridge/internal/core/domain"
	"custody-bridge/internal/core/ports"
	"custody-bridge/pkg/apperror"
	"custody-bridge/pkg/response"

	"github.com/gin-gonic/gin"
)

// EventsHandler serves the persisted event log.
type EventsHandler struct {
	eventSvc ports.EventService
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(eventSvc ports.EventService) *EventsHandler {
	return &EventsHandler{eventSvc: eventSvc}
}

// List handles GET /api/v1/events?name=&limit=.
func (h *EventsHandler) List(c *gin.Context) {
	name := domain.EventName(c.Query("name"))
	if name != "" && name.Signature() == "" {
		response.Error(c, apperror.Validation("unknown event name"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, apperror.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	events, err := h.eventSvc.Recent(c.Request.Context(), name, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EventResponse, 0, len(events))
	for _, ev := range events {
		items = append(items, dto.NewEventResponse(ev))
	}
	response.OK(c, items)
}
