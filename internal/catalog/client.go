package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"orderintake/internal"
	"orderintake/internal/config"
)

// Client pulls the product catalog from the supplier HTTP API. The API
// pages with a scroll id; Client drains all pages, rate limited and with
// retries on transient status codes.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type scrollPayload struct {
	Products []map[string]any `json:"products"`
	ScrollID *string          `json:"scrollId"`
	Total    *int             `json:"total"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.SupplierTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.SupplierRateLimitRPS),
	}
}

func (c *Client) GetProductsAll(ctx context.Context) ([]internal.Product, error) {
	return c.getProductsScroll(ctx, map[string]string{})
}

// GetProductsUpdatedSince fetches only products changed in the last
// lookback hours, for incremental stock/price refreshes.
func (c *Client) GetProductsUpdatedSince(ctx context.Context, hours int) ([]internal.Product, error) {
	if hours <= 0 {
		hours = c.cfg.SupplierLookbackHrs
	}
	return c.getProductsScroll(ctx, map[string]string{"updatedHours": strconv.Itoa(hours)})
}

func (c *Client) getProductsScroll(ctx context.Context, params map[string]string) ([]internal.Product, error) {
	all := make([]internal.Product, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{}
		for k, v := range params {
			query[k] = v
		}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.fetchJSON(ctx, "products/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Products {
			product, err := toProduct(raw)
			if err != nil {
				continue
			}
			all = append(all, product)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Products) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.SupplierAPIBaseURL) == "" {
		return nil, errors.New("missing SUPPLIER_API_BASE_URL")
	}
	if strings.TrimSpace(c.cfg.SupplierAPIToken) == "" {
		return nil, errors.New("missing SUPPLIER_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.SupplierAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.SupplierAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("supplier status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("supplier api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("supplier api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("supplier request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toProduct(raw map[string]any) (internal.Product, error) {
	sku, _ := raw["sku"].(string)
	sku = strings.TrimSpace(sku)
	name, _ := raw["name"].(string)
	name = strings.TrimSpace(name)
	if sku == "" || name == "" {
		return internal.Product{}, errors.New("missing sku or name")
	}

	p := internal.Product{SKU: sku, Name: name, MinOrderQty: 1}
	if desc, ok := raw["description"].(string); ok {
		p.Description = strings.TrimSpace(desc)
	}
	if price, ok := toFloat(raw["price"]); ok {
		p.Price = price
	}
	if stock, ok := toInt(raw["stock"]); ok && stock > 0 {
		p.Stock = stock
	}
	if moq, ok := toInt(raw["minOrderQty"]); ok && moq > 0 {
		p.MinOrderQty = moq
	}
	if aliases, ok := raw["aliases"].([]any); ok {
		for _, a := range aliases {
			if s, ok := a.(string); ok && strings.TrimSpace(s) != "" {
				p.Aliases = append(p.Aliases, strings.TrimSpace(s))
			}
		}
	}

	return p, nil
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
