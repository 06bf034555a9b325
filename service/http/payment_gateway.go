package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ygyuri/MVPEVENT-i-sub006/config"
	"github.com/ygyuri/MVPEVENT-i-sub006/service"
)

type HTTPPaymentGateway struct {
	baseURL    string
	httpClient *http.Client
	authKey    string
}

func NewHTTPPaymentGateway(baseURL, authKey string) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		baseURL: baseURL,
		authKey: authKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewHTTPPaymentGatewayWithConfig creates a gateway client with connection pooling
func NewHTTPPaymentGatewayWithConfig(cfg *config.PaymentGateway, authKey string) *HTTPPaymentGateway {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     time.Duration(cfg.IdleConnTimeout) * time.Second,
		DisableKeepAlives:   false,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPPaymentGateway{
		baseURL: cfg.BaseURL,
		authKey: authKey,
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
			Transport: transport,
		},
	}
}

// Charge initiates a payment for an order
func (g *HTTPPaymentGateway) Charge(chargeReq service.ChargeRequest) (*service.ChargeResult, error) {
	url := fmt.Sprintf("%s/api/charges", g.baseURL)

	body, err := json.Marshal(chargeReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode charge request: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Auth", g.authKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payment gateway error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result service.ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetCharge retrieves the current state of a charge
func (g *HTTPPaymentGateway) GetCharge(paymentRef string) (*service.ChargeResult, error) {
	url := fmt.Sprintf("%s/api/charges/%s", g.baseURL, paymentRef)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Auth", g.authKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("charge not found")
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payment gateway error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result service.ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
