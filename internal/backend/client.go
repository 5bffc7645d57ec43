// Package backend is the HTTP client for the merchant prediction API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"merchantdash/internal/location"
)

// UserHeader carries the opaque user id on every request.
const UserHeader = "X-User-Id"

var ErrMissingUser = errors.New("backend: user id required")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// InitProducts provisions the default catalogue for a freshly registered user.
// The backend answers "skipped" when products already exist; both are success.
func (c *Client) InitProducts(ctx context.Context, userID string) error {
	var out statusResponse
	if err := c.do(ctx, http.MethodPost, "/products/init", userID, nil, struct{}{}, &out); err != nil {
		return fmt.Errorf("init products: %w", err)
	}
	return nil
}

func (c *Client) ListProducts(ctx context.Context, userID string) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products", userID, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// Predict fetches the weekly forecast for one product. coord is optional.
func (c *Client) Predict(ctx context.Context, userID string, productID int64, coord *location.Coordinate) (ProductForecast, error) {
	var out struct {
		ProductForecast
		Error string `json:"error"`
	}
	path := "/predict/" + strconv.FormatInt(productID, 10)
	if err := c.do(ctx, http.MethodGet, path, userID, coordQuery(coord), nil, &out); err != nil {
		return ProductForecast{}, fmt.Errorf("predict product %d: %w", productID, err)
	}
	// The API reports an untrained model as 200 {"error": "..."}.
	if out.Error != "" {
		return ProductForecast{}, fmt.Errorf("predict product %d: %w", productID, &APIError{Status: http.StatusOK, Detail: out.Error})
	}
	if out.ProductID == 0 {
		out.ProductID = productID
	}
	return out.ProductForecast, nil
}

func (c *Client) SalesHistory(ctx context.Context, userID string) ([]SalesRecord, error) {
	var out []SalesRecord
	if err := c.do(ctx, http.MethodGet, "/sales/history", userID, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("sales history: %w", err)
	}
	return out, nil
}

func (c *Client) Summary(ctx context.Context, userID string) (Summary, error) {
	var out Summary
	if err := c.do(ctx, http.MethodGet, "/analytics/summary", userID, nil, nil, &out); err != nil {
		return Summary{}, fmt.Errorf("analytics summary: %w", err)
	}
	return out, nil
}

// RecordSale posts a sale. The coordinate, when known, lets the backend tag
// the sale with local weather.
func (c *Client) RecordSale(ctx context.Context, userID string, req SaleRequest, coord *location.Coordinate) error {
	var out statusResponse
	if err := c.do(ctx, http.MethodPost, "/sales", userID, coordQuery(coord), req, &out); err != nil {
		return fmt.Errorf("record sale: %w", err)
	}
	return nil
}

func (c *Client) Restock(ctx context.Context, userID string, req RestockRequest) error {
	var out statusResponse
	if err := c.do(ctx, http.MethodPost, "/restock", userID, nil, req, &out); err != nil {
		return fmt.Errorf("restock: %w", err)
	}
	return nil
}

func (c *Client) Retrain(ctx context.Context, userID string) (RetrainResponse, error) {
	var out RetrainResponse
	if err := c.do(ctx, http.MethodPost, "/retrain", userID, nil, struct{}{}, &out); err != nil {
		return RetrainResponse{}, fmt.Errorf("retrain: %w", err)
	}
	return out, nil
}

func coordQuery(coord *location.Coordinate) url.Values {
	if coord == nil {
		return nil
	}
	return url.Values{
		"lat": {strconv.FormatFloat(coord.Latitude, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(coord.Longitude, 'f', -1, 64)},
	}
}

func (c *Client) do(ctx context.Context, method, path, userID string, query url.Values, body, out any) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUser
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(UserHeader, userID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Detail: parseDetail(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
