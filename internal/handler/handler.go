// Package handler содержит HTTP-обработчики API сервиса кредитной оценки.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/bnpl-system/internal/middleware"
	"github.com/mmeshcher/bnpl-system/internal/model"
	"github.com/mmeshcher/bnpl-system/internal/repository"
	"github.com/mmeshcher/bnpl-system/internal/service"
	"github.com/mmeshcher/bnpl-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	Assess(ctx context.Context, userID string, requestedAmount float64) (*model.CreditAssessment, error)
	Score(ctx context.Context, userID string) (*service.ScoreSummary, error)
	ListUsers(ctx context.Context) ([]repository.UserWithCount, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	CreateUser(ctx context.Context, name, email, riskSegment string) (*model.User, error)
	GetTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error)
	AddTransaction(ctx context.Context, t model.Transaction) (*model.Transaction, error)
}

// Handler реализует HTTP-обработчики API сервиса кредитной оценки.
type Handler struct {
	service Service
	logger  *zap.Logger
	apiKey  *middleware.APIKeyMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, apiKey *middleware.APIKeyMiddleware) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		apiKey:  apiKey,
	}
}

type assessRequest struct {
	UserID          string  `json:"user_id"`
	RequestedAmount float64 `json:"requested_amount"`
}

// Assess обрабатывает запрос кредитной оценки на кассе.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidUserID(req.UserID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}
	if !validation.IsValidAmount(req.RequestedAmount) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	assessment, err := h.service.Assess(r.Context(), req.UserID, req.RequestedAmount)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("assess error", zap.Error(err), zap.String("userID", req.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, assessment)
}

// GetScore возвращает краткую сводку оценки пользователя.
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !validation.IsValidUserID(userID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	summary, err := h.service.Score(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("score error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, summary)
}

type userResponse struct {
	UserID           string `json:"user_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	RegistrationDate string `json:"registration_date"`
	RiskSegment      string `json:"risk_segment"`
	TransactionCount int    `json:"transaction_count"`
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{
			UserID:           u.ID,
			Name:             u.Name,
			Email:            u.Email,
			RegistrationDate: u.RegistrationDate.Format(time.RFC3339),
			RiskSegment:      u.RiskSegment,
			TransactionCount: u.TransactionCount,
		})
	}

	writeJSON(w, map[string]any{"users": resp, "total": len(resp)})
}

// GetUser возвращает пользователя по идентификатору.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !validation.IsValidUserID(userID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get user error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, userResponse{
		UserID:           u.ID,
		Name:             u.Name,
		Email:            u.Email,
		RegistrationDate: u.RegistrationDate.Format(time.RFC3339),
		RiskSegment:      u.RiskSegment,
	})
}

type createUserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	RiskSegment string `json:"risk_segment"`
}

// CreateUser регистрирует нового пользователя.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Email == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	u, err := h.service.CreateUser(r.Context(), req.Name, req.Email, req.RiskSegment)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("create user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(userResponse{
		UserID:           u.ID,
		Name:             u.Name,
		Email:            u.Email,
		RegistrationDate: u.RegistrationDate.Format(time.RFC3339),
		RiskSegment:      u.RiskSegment,
	})
}

// GetTransactions возвращает историю транзакций пользователя с фильтрами.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !validation.IsValidUserID(userID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	filter, err := parseTransactionFilter(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	transactions, err := h.service.GetTransactions(r.Context(), userID, filter)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get transactions error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if transactions == nil {
		transactions = []model.Transaction{}
	}

	writeJSON(w, map[string]any{
		"transactions": transactions,
		"total":        len(transactions),
		"user_id":      userID,
	})
}

// AddTransaction сохраняет новую транзакцию пользователя.
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var t model.Transaction
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidUserID(t.UserID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}
	if !validation.IsValidAmount(t.GMVAmount) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	created, err := h.service.AddTransaction(r.Context(), t)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("add transaction error", zap.Error(err), zap.String("userID", t.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(created)
}

// Health возвращает статус сервиса и его зависимостей.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "ok"}
	code := http.StatusOK

	if err := h.service.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func parseTransactionFilter(r *http.Request) (repository.TransactionFilter, error) {
	filter := repository.TransactionFilter{
		Merchant: r.URL.Query().Get("merchant"),
		Category: r.URL.Query().Get("category"),
	}

	if v := r.URL.Query().Get("start"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.Start = &ts
	}
	if v := r.URL.Query().Get("end"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.End = &ts
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return filter, strconv.ErrRange
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, strconv.ErrRange
		}
		filter.Offset = n
	}

	return filter, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
