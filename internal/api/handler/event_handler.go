package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

// EventDispatcher is the interface the handler uses to enqueue scan events.
type EventDispatcher interface {
	Enqueue(event ports.ScanEventInput)
	EnqueueBatch(events []ports.ScanEventInput)
}

// EventHandler handles courier scan event ingestion. Events are accepted,
// queued and processed asynchronously; a 202 response does not mean the
// transition was applied.
type EventHandler struct {
	dispatcher EventDispatcher
}

// NewEventHandler creates an EventHandler backed by the given dispatcher.
func NewEventHandler(dispatcher EventDispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher}
}

// Receive handles POST /v1/events — enqueues a single scan event, returns 202.
//
// @Summary      Ingest a single scan event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      scanEventRequest  true  "Scan event"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/events [post]
func (h *EventHandler) Receive(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req scanEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	h.dispatcher.Enqueue(toScanInput(req, actor))
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "event accepted"})
}

// ReceiveBatch handles POST /v1/events/batch — enqueues a batch of scan
// events, returns 202. The whole batch is validated before anything is
// enqueued, so a rejected batch has no partial effect.
//
// @Summary      Ingest a batch of scan events
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []scanEventRequest  true  "Array of scan events"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/events/batch [post]
func (h *EventHandler) ReceiveBatch(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var reqs []scanEventRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}

	inputs := make([]ports.ScanEventInput, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("event[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, toScanInput(req, actor))
	}

	h.dispatcher.EnqueueBatch(inputs)
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "events accepted",
		Count:   len(inputs),
	})
}

// toScanInput maps the HTTP request to the service DTO.
func toScanInput(r scanEventRequest, actor domain.Actor) ports.ScanEventInput {
	return ports.ScanEventInput{
		TrackingNumber: r.TrackingNumber,
		Status:         r.Status,
		Timestamp:      r.Timestamp,
		Location:       r.Location,
		Actor:          actor,
	}
}
