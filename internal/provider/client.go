// Package provider предоставляет клиент внешнего провайдера планов рассрочки.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/bnpl-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с провайдером рассрочки.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type offersRequest struct {
	Amount      float64 `json:"amount"`
	CreditLimit float64 `json:"credit_limit"`
}

type offersResponse struct {
	Offers []model.EMIOffer `json:"offers"`
}

// NewClient создаёт HTTP-клиент провайдера по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

// FetchOffers запрашивает у провайдера варианты рассрочки для указанной суммы.
// При любой ошибке вызывающий код переходит на локальный расчёт аннуитета.
func (c *Client) FetchOffers(ctx context.Context, amount, creditLimit float64) ([]model.EMIOffer, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("provider client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(offersRequest{Amount: amount, CreditLimit: creditLimit})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/emi/offers", bytes.NewReader(body))
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

	var result offersResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Offers, nil
}
