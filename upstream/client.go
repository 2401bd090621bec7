package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
// Callers treat it as a signal to tear the session down.
var ErrUnauthorized = errors.New("upstream: unauthorized")

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Client talks to the remote order backend's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
	}
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Reconfigure updates the client's base URL and timeout for hot-reload.
func (c *Client) Reconfigure(baseURL string, timeout time.Duration) {
	c.baseURL = baseURL
	c.httpClient.Timeout = timeout
}

// Ping checks reachability of the backend.
func (c *Client) Ping() error {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("upstream ping: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) get(path string, result any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("upstream GET %s: %w", path, err)
	}
	return c.do(req, result)
}

func (c *Client) send(method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("upstream %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	return c.decode(resp, result)
}

func (c *Client) decode(resp *http.Response, result any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("upstream read body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		// The backend reports failures as {"error": "..."}.
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("upstream HTTP %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("upstream HTTP %d: %s", resp.StatusCode, string(data))
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("upstream decode: %w", err)
		}
	}
	return nil
}

// --- Auth ---

func (c *Client) Login(email, password string) (*LoginResult, error) {
	var res LoginResult
	err := c.send(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Register(name, email, password string) (*LoginResult, error) {
	var res LoginResult
	err := c.send(http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Orders ---

// FetchOrders requests the full order list.
func (c *Client) FetchOrders() ([]Order, error) {
	var orders []Order
	if err := c.get("/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus requests a status transition for one order and returns
// the backend's updated record.
func (c *Client) UpdateOrderStatus(orderID, status string) (*Order, error) {
	var updated Order
	err := c.send(http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status",
		map[string]string{"status": status}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// FetchMyOrders requests a slice of the caller's own orders.
func (c *Client) FetchMyOrders(q OrderQuery) ([]Order, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.StartDate != "" {
		params.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("endDate", q.EndDate)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		params.Set("skip", strconv.Itoa(q.Skip))
	}
	var orders []Order
	if err := c.get("/user/my-orders?"+params.Encode(), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// --- Products ---

// FetchProducts requests one page of the catalog.
func (c *Client) FetchProducts(q ProductQuery) (*ProductPage, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	params := url.Values{}
	params.Set("search", q.Search)
	params.Set("sort", q.Sort)
	params.Set("order", q.Order)
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("skip", strconv.Itoa(q.Skip))
	var page ProductPage
	if err := c.get("/products?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// --- Dashboard aggregates (server-side computation, deck renders only) ---

func dateRangeParams(startDate, endDate string) string {
	params := url.Values{}
	if startDate != "" {
		params.Set("startDate", startDate)
	}
	if endDate != "" {
		params.Set("endDate", endDate)
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

func (c *Client) FetchStats(startDate, endDate string) (*StatsReport, error) {
	var report StatsReport
	if err := c.get("/dashboard/stats"+dateRangeParams(startDate, endDate), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) FetchUserStats(startDate, endDate string) (*StatsReport, error) {
	var report StatsReport
	if err := c.get("/dashboard/user-stats"+dateRangeParams(startDate, endDate), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) FetchUserDetailedStats(userID, timeframe, startDate, endDate string) (*UserStatsReport, error) {
	params := url.Values{}
	if timeframe != "" {
		params.Set("timeframe", timeframe)
	}
	if startDate != "" {
		params.Set("startDate", startDate)
	}
	if endDate != "" {
		params.Set("endDate", endDate)
	}
	path := "/dashboard/user-detailed-stats/" + url.PathEscape(userID)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var report UserStatsReport
	if err := c.get(path, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
