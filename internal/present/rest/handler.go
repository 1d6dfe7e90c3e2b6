package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/domain"
	"github.com/veriport/veriport/internal/present/rest/presenter"
	"github.com/veriport/veriport/internal/service"
	"github.com/veriport/veriport/internal/usecase"
)

type Handler struct {
	lifecycle *usecase.LifecycleUsecase
	discovery *usecase.DiscoveryUsecase
	verify    *usecase.VerifyUsecase
	signal    *service.SignalService
}

func NewHandler(
	lifecycle *usecase.LifecycleUsecase,
	discovery *usecase.DiscoveryUsecase,
	verify *usecase.VerifyUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		discovery: discovery,
		verify:    verify,
		signal:    signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/requests", h.handleCreate)
	e.GET("/api/v1/requests/:id", h.handleGet)
	e.GET("/api/v1/requests/:id/verify", h.handleVerify)
	e.POST("/api/v1/requests/:id/confirm", h.handleConfirm)
	e.POST("/api/v1/requests/:id/reject", h.handleReject)
	e.GET("/api/v1/requests/:id/decisions", h.handleDecisions)
	e.GET("/api/v1/owners/:address/requests", h.handleListForOwner)
	e.GET("/api/v1/organizers/:address/requests", h.handleListForOrganizer)
	e.GET("/realtime", h.handleRealtime)
}

func requestID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func fromHeight(c echo.Context) (uint64, bool) {
	raw := c.QueryParam("fromHeight")
	if raw == "" {
		return 0, true
	}
	height, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return height, true
}

// present maps a lifecycle failure onto the response taxonomy. Validation
// problems are the caller's fault; everything else keeps its own category.
func present(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrAlreadyFinalized):
		return presenter.Conflict(c, err)
	case errors.Is(err, domain.ErrUnverifiedContent):
		return presenter.UnprocessableEntity(c, err)
	case errors.Is(err, domain.ErrAuthorizationDenied):
		return presenter.Forbidden(c, err)
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrStoreRejected),
		errors.Is(err, domain.ErrFetchFailed):
		return presenter.BadGateway(c, err)
	default:
		return presenter.InternalError(c, err)
	}
}

type createRequest struct {
	Organizer   string `json:"organizer"`
	StartAt     string `json:"startAt"`
	EndAt       string `json:"endAt"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func parseDay(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func (h *Handler) handleCreate(c echo.Context) error {
	ctx := c.Request().Context()

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	startAt, err := parseDay(req.StartAt)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid startAt")
	}
	endAt, err := parseDay(req.EndAt)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid endAt")
	}
	if req.Title == "" {
		return presenter.BadRequestMessage(c, "title is required")
	}
	if !veriport.IsAddress(req.Organizer) {
		return presenter.BadRequestMessage(c, "invalid organizer address")
	}
	if endAt.Before(startAt) {
		return presenter.BadRequestMessage(c, "endAt cannot be earlier than startAt")
	}

	result, err := h.lifecycle.Create(ctx, usecase.CreateInput{
		Organizer:   req.Organizer,
		StartAt:     startAt,
		EndAt:       endAt,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return present(c, err)
	}

	return presenter.OK(c, result)
}

func (h *Handler) handleGet(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := requestID(c)
	if !ok {
		return presenter.BadRequestMessage(c, "invalid request id")
	}

	rec, err := h.discovery.Get(ctx, id)
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, rec)
}

func (h *Handler) handleVerify(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := requestID(c)
	if !ok {
		return presenter.BadRequestMessage(c, "invalid request id")
	}

	rec, err := h.discovery.Get(ctx, id)
	if err != nil {
		return present(c, err)
	}

	return presenter.OK(c, h.verify.Verify(ctx, *rec))
}

type confirmRequest struct {
	ResultURI string `json:"resultURI"`
}

func (h *Handler) handleConfirm(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := requestID(c)
	if !ok {
		return presenter.BadRequestMessage(c, "invalid request id")
	}

	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	txHash, err := h.lifecycle.Confirm(ctx, id, req.ResultURI)
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok", "txHash": txHash})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := requestID(c)
	if !ok {
		return presenter.BadRequestMessage(c, "invalid request id")
	}

	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Reason == "" {
		return presenter.BadRequestMessage(c, "reason is required")
	}

	txHash, err := h.lifecycle.Reject(ctx, id, req.Reason)
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok", "txHash": txHash})
}

func (h *Handler) handleDecisions(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := requestID(c)
	if !ok {
		return presenter.BadRequestMessage(c, "invalid request id")
	}

	decisions, err := h.lifecycle.Decisions(ctx, id)
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, decisions)
}

func (h *Handler) handleListForOwner(c echo.Context) error {
	ctx := c.Request().Context()

	height, ok := fromHeight(c)
	if !ok {
		return presenter.BadRequestMessage(c, "invalid fromHeight parameter")
	}

	address := c.Param("address")
	if !veriport.IsAddress(address) {
		return presenter.BadRequestMessage(c, "invalid owner address")
	}

	records, err := h.discovery.ListForOwner(ctx, address, height)
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, records)
}

func (h *Handler) handleListForOrganizer(c echo.Context) error {
	ctx := c.Request().Context()

	height, ok := fromHeight(c)
	if !ok {
		return presenter.BadRequestMessage(c, "invalid fromHeight parameter")
	}

	address := c.Param("address")
	if !veriport.IsAddress(address) {
		return presenter.BadRequestMessage(c, "invalid organizer address")
	}

	var records []veriport.AttestationRequest
	var err error
	switch c.QueryParam("status") {
	case "":
		records, err = h.discovery.ListForOrganizer(ctx, address, height)
	case "pending":
		records, err = h.discovery.PendingForOrganizer(ctx, address, height)
	default:
		return presenter.BadRequestMessage(c, "invalid status parameter")
	}
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, records)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type string   `json:"type"`
	IDs  []uint64 `json:"ids"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	events, err := h.signal.Subscribe(ctx)
	if err != nil {
		slog.ErrorContext(
			ctx, "Failed to subscribe lifecycle events",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return nil
	}

	// Empty filter forwards everything.
	filter := make(chan []uint64)
	defer close(filter)

	quit := make(chan struct{})

	go func() {
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				filter <- req.IDs
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	watched := map[uint64]bool{}

	for {
		select {
		case <-quit:
			return nil
		case ids := <-filter:
			watched = map[uint64]bool{}
			for _, id := range ids {
				watched[id] = true
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if len(watched) > 0 && !watched[event.ID] {
				continue
			}
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
