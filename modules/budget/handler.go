package budget

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/budgetbook/modules/auth"
	"github.com/dmitrymomot/budgetbook/modules/user"
	"github.com/dmitrymomot/budgetbook/pkg/logger"
)

// Handler exposes the budget module over HTTP. Every route expects the
// session middleware upstream; the caller's email resolves to their user id
// through the directory.
type Handler struct {
	svc    *Service
	users  user.Directory
	logger *slog.Logger
}

// NewHandler creates the budget HTTP handler.
func NewHandler(svc *Service, users user.Directory, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{svc: svc, users: users, logger: log}
}

// Router mounts the budget endpoints.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/dashboard", h.Dashboard)

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.ListTransactions)
		r.Post("/", h.CreateTransaction)
		r.Delete("/{id}", h.DeleteTransaction)
	})

	r.Route("/recurring", func(r chi.Router) {
		r.Get("/", h.ListRecurring)
		r.Post("/", h.CreateRecurring)
		r.Delete("/{id}", h.DeleteRecurring)
	})

	r.Route("/installments", func(r chi.Router) {
		r.Get("/", h.ListInstallments)
		r.Post("/", h.CreateInstallment)
		r.Delete("/{id}", h.DeleteInstallment)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.ListNotifications)
		r.Post("/{id}/read", h.MarkNotificationRead)
	})

	return r
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	year, month := monthQuery(r, time.Now())
	sum, err := h.svc.MonthlySummary(r.Context(), uid, year, month)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	year, month := monthQuery(r, time.Now())
	list, err := h.svc.Transactions(r.Context(), uid, year, month)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": list})
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount   int64     `json:"amount"`
		Category string    `json:"category"`
		Note     string    `json:"note"`
		Date     time.Time `json:"date"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	t, err := h.svc.AddTransaction(r.Context(), uid, req.Amount, req.Category, req.Note, req.Date)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.svc.RemoveTransaction)
}

func (h *Handler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	list, err := h.svc.Recurring(r.Context(), uid)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recurring": list})
}

func (h *Handler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name       string     `json:"name"`
		Amount     int64      `json:"amount"`
		DayOfMonth int        `json:"dayOfMonth"`
		StartDate  time.Time  `json:"startDate"`
		EndDate    *time.Time `json:"endDate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.svc.AddRecurring(r.Context(), uid, req.Name, req.Amount, req.DayOfMonth, req.StartDate, req.EndDate)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) DeleteRecurring(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.svc.RemoveRecurring)
}

func (h *Handler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	list, err := h.svc.Installments(r.Context(), uid)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"installments": list})
}

func (h *Handler) CreateInstallment(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name         string    `json:"name"`
		TotalAmount  int64     `json:"totalAmount"`
		Months       int       `json:"months"`
		FirstDueDate time.Time `json:"firstDueDate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.svc.AddInstallment(r.Context(), uid, req.Name, req.TotalAmount, req.Months, req.FirstDueDate)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) DeleteInstallment(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.svc.RemoveInstallment)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	list, err := h.svc.Notifications(r.Context(), uid)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.svc.MarkNotificationRead)
}

// deleteByID factors the shared id-scoped mutation pattern: resolve the
// caller, parse the path id, run the operation.
func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, id uuid.UUID) error) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return
	}

	if err := op(r.Context(), uid, id); err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.CurrentIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthenticated"})
		return uuid.Nil, false
	}

	uid, err := h.users.EnsureExists(r.Context(), id.Email)
	if err != nil {
		h.logger.Error("failed to resolve user",
			logger.Email(id.Email),
			logger.Error(err),
			logger.Component("budget.handler"),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return uuid.Nil, false
	}

	return uid, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	default:
		h.logger.Error("budget request failed",
			logger.Error(err),
			logger.Component("budget.handler"),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return false
	}
	return true
}

func monthQuery(r *http.Request, fallback time.Time) (int, time.Month) {
	year := fallback.Year()
	month := fallback.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := r.URL.Query().Get("month"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = time.Month(m)
		}
	}

	return year, month
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
