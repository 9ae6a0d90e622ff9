package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/bnpl-system/internal/middleware"
	"github.com/mmeshcher/bnpl-system/internal/model"
	"github.com/mmeshcher/bnpl-system/internal/repository"
	"github.com/mmeshcher/bnpl-system/internal/service"
)

const testUserID = "11111111-1111-1111-1111-111111111111"

type stubService struct {
	pingErr error

	assessment *model.CreditAssessment
	assessErr  error

	summary  *service.ScoreSummary
	scoreErr error

	users     []repository.UserWithCount
	user      *model.User
	userErr   error
	created   *model.User
	createErr error

	transactions    []model.Transaction
	transactionsErr error

	addedTransaction *model.Transaction
	addErr           error
}

func (s *stubService) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubService) Assess(ctx context.Context, userID string, requestedAmount float64) (*model.CreditAssessment, error) {
	return s.assessment, s.assessErr
}

func (s *stubService) Score(ctx context.Context, userID string) (*service.ScoreSummary, error) {
	return s.summary, s.scoreErr
}

func (s *stubService) ListUsers(ctx context.Context) ([]repository.UserWithCount, error) {
	return s.users, nil
}

func (s *stubService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) CreateUser(ctx context.Context, name, email, riskSegment string) (*model.User, error) {
	return s.created, s.createErr
}

func (s *stubService) GetTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error) {
	return s.transactions, s.transactionsErr
}

func (s *stubService) AddTransaction(ctx context.Context, t model.Transaction) (*model.Transaction, error) {
	return s.addedTransaction, s.addErr
}

func newTestRouter(s *stubService, apiKey string) http.Handler {
	h := NewHandler(s, zap.NewNop(), middleware.NewAPIKeyMiddleware(apiKey))
	return h.SetupRouter()
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAssess_Handler(t *testing.T) {
	svc := &stubService{assessment: &model.CreditAssessment{
		UserID:      testUserID,
		UserName:    "Vikram Singh",
		Approved:    true,
		CreditScore: 95.6,
		CreditLimit: 46136,
		EMIOffers:   []model.EMIOffer{{TenureMonths: 3, MonthlyAmount: 1666.67, TotalAmount: 5000}},
		Narrative:   "approved",
	}}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/credit/assess",
		map[string]any{"user_id": testUserID, "requested_amount": 5000})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var got model.CreditAssessment
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Approved || got.CreditScore != 95.6 || len(got.EMIOffers) != 1 {
		t.Fatalf("unexpected assessment: %+v", got)
	}
}

func TestAssess_Validation(t *testing.T) {
	router := newTestRouter(&stubService{}, "")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed json", "not-json", http.StatusBadRequest},
		{"bad user id", map[string]any{"user_id": "abc", "requested_amount": 100}, http.StatusUnprocessableEntity},
		{"zero amount", map[string]any{"user_id": testUserID, "requested_amount": 0}, http.StatusBadRequest},
		{"negative amount", map[string]any{"user_id": testUserID, "requested_amount": -5}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/credit/assess", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAssess_UserNotFound_Handler(t *testing.T) {
	svc := &stubService{assessErr: repository.ErrUserNotFound}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/credit/assess",
		map[string]any{"user_id": testUserID, "requested_amount": 1000})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAssess_InternalError(t *testing.T) {
	svc := &stubService{assessErr: errors.New("database down")}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/credit/assess",
		map[string]any{"user_id": testUserID, "requested_amount": 1000})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestGetScore_Handler(t *testing.T) {
	svc := &stubService{summary: &service.ScoreSummary{
		UserID:      testUserID,
		CreditScore: 41.05,
		Approved:    false,
	}}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodGet, "/api/v1/credit/score/"+testUserID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got service.ScoreSummary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.CreditScore != 41.05 || got.Approved {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestGetScore_BadUserID(t *testing.T) {
	router := newTestRouter(&stubService{}, "")

	w := doJSON(t, router, http.MethodGet, "/api/v1/credit/score/not-a-uuid", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestListUsers_Handler(t *testing.T) {
	svc := &stubService{users: []repository.UserWithCount{
		{
			User: model.User{
				ID:               testUserID,
				Name:             "Rahul Verma",
				Email:            "rahul@example.com",
				RegistrationDate: time.Now().AddDate(0, 0, -3),
				RiskSegment:      "new_user",
			},
			TransactionCount: 2,
		},
	}}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got struct {
		Users []userResponse `json:"users"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 1 || len(got.Users) != 1 || got.Users[0].TransactionCount != 2 {
		t.Fatalf("unexpected users payload: %+v", got)
	}
}

func TestCreateUser_Handler(t *testing.T) {
	svc := &stubService{created: &model.User{
		ID:               testUserID,
		Name:             "Sneha Reddy",
		Email:            "sneha@example.com",
		RegistrationDate: time.Now(),
	}}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/users/",
		map[string]any{"name": "Sneha Reddy", "email": "sneha@example.com"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestCreateUser_Conflict(t *testing.T) {
	svc := &stubService{createErr: repository.ErrEmailExists}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/users/",
		map[string]any{"name": "Sneha Reddy", "email": "sneha@example.com"})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestCreateUser_MissingFields(t *testing.T) {
	router := newTestRouter(&stubService{}, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/users/",
		map[string]any{"name": "", "email": ""})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetTransactions_Handler(t *testing.T) {
	svc := &stubService{transactions: []model.Transaction{
		{ID: "t1", UserID: testUserID, Category: "electronics", GMVAmount: 1500},
	}}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodGet,
		"/api/v1/transactions/"+testUserID+"?category=electronics&limit=10", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got struct {
		Transactions []model.Transaction `json:"transactions"`
		Total        int                 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 1 || got.Transactions[0].Category != "electronics" {
		t.Fatalf("unexpected transactions payload: %+v", got)
	}
}

func TestGetTransactions_BadFilter(t *testing.T) {
	router := newTestRouter(&stubService{}, "")

	tests := []struct {
		name   string
		target string
	}{
		{"bad start", "/api/v1/transactions/" + testUserID + "?start=yesterday"},
		{"limit too big", "/api/v1/transactions/" + testUserID + "?limit=1000"},
		{"negative offset", "/api/v1/transactions/" + testUserID + "?offset=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, tt.target, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestAddTransaction_Handler(t *testing.T) {
	svc := &stubService{addedTransaction: &model.Transaction{
		ID: "t1", UserID: testUserID, GMVAmount: 999, Category: "fashion",
	}}
	router := newTestRouter(svc, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/transactions/",
		map[string]any{"user_id": testUserID, "gmv_amount": 999, "category": "fashion"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestHealth_Handler(t *testing.T) {
	router := newTestRouter(&stubService{}, "")

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHealth_Degraded(t *testing.T) {
	router := newTestRouter(&stubService{pingErr: errors.New("no connection")}, "")

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestAPIKey_Required(t *testing.T) {
	router := newTestRouter(&stubService{users: nil}, "secret")

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
	req.Header.Set("X-Api-Key", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with key = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
	req.Header.Set("X-Api-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong key = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Маршрут здоровья открыт без ключа.
	w = doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
}
