package reminders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayesh156/eco-system-sub002/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reminders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/scan", h.scan)
		r.Post("/customers/{customerID}", h.remind)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reminders, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list reminders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reminders": reminders})
}

// remind queues a reminder for one customer regardless of the cooldown.
func (h *Handler) remind(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "customer id must be numeric")
		return
	}
	reminder, err := h.service.Remind(r.Context(), customerID)
	if err != nil {
		h.logger.Error("manual reminder", slog.Any("error", err), slog.Int64("customer_id", customerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, reminder)
}

// scan triggers the overdue pass outside its cron schedule.
func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Scan(r.Context())
	if err != nil {
		h.logger.Error("reminder scan", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, result)
}
