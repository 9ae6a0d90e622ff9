// Package oracle предоставляет клиент внешнего AI-оракула кредитной оценки.
//
// Оракул — необязательный источник оценки: любой его отказ или
// некорректный ответ означает переход на детерминированный движок,
// и это штатный сценарий, а не исключение.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/bnpl-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с оракулом оценки.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// Request — входные данные оракула.
type Request struct {
	UserName       string              `json:"user_name"`
	Transactions   []model.Transaction `json:"transactions"`
	FraudFlagged   bool                `json:"fraud_flagged"`
	AccountAgeDays int                 `json:"account_age_days"`
}

// Assessment — ответ оракула. Должен соответствовать схеме разбивки оценки,
// иначе вызов считается неуспешным.
type Assessment struct {
	Approved       bool                 `json:"approved"`
	CreditScore    float64              `json:"credit_score"`
	CreditLimit    float64              `json:"credit_limit"`
	ScoreBreakdown model.ScoreBreakdown `json:"score_breakdown"`
	Narrative      string               `json:"narrative"`
}

// Validate проверяет ответ оракула на соответствие схеме.
func (a *Assessment) Validate() error {
	if a.CreditScore < 0 || a.CreditScore > 100 {
		return fmt.Errorf("credit score out of range: %v", a.CreditScore)
	}
	if a.CreditLimit < 0 {
		return fmt.Errorf("negative credit limit: %v", a.CreditLimit)
	}
	if !a.ScoreBreakdown.InRange() {
		return fmt.Errorf("score breakdown out of range")
	}
	if a.Narrative == "" {
		return fmt.Errorf("empty narrative")
	}
	return nil
}

// NewClient создаёт HTTP-клиент оракула по указанному адресу.
// Таймаут короткий: медленный оракул деградирует качество решения, но не подвешивает запрос.
func NewClient(baseURL string) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 1
	httpClient.RetryWaitMin = 100 * time.Millisecond
	httpClient.RetryWaitMax = 500 * time.Millisecond
	httpClient.HTTPClient.Timeout = 3 * time.Second
	httpClient.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Score запрашивает у оракула оценку по истории транзакций пользователя.
// Любая ошибка означает переход вызывающего кода на детерминированный путь.
func (c *Client) Score(ctx context.Context, request Request) (*Assessment, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("oracle client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result Assessment
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("malformed oracle response: %w", err)
	}

	return &result, nil
}
