package cli

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

	"gymsim/internal/gym"
	"gymsim/internal/planner"
	"gymsim/internal/store"

	"github.com/shopspring/decimal"
)

// APIError is a non-2xx answer from the API. Anything else returned by the client
// is a transport failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type Benefits struct {
	Benefits    []gym.CompanyBenefit              `json:"benefits"`
	JumpEffects map[gym.JumpFamily]gym.JumpEffect `json:"jump_effects"`
}

func (c *Client) Health(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil, nil, "")
}

func (c *Client) Gyms(ctx context.Context) ([]gym.Gym, error) {
	var out struct {
		Gyms []gym.Gym `json:"gyms"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/gyms", nil, &out, "")
	return out.Gyms, err
}

func (c *Client) Benefits(ctx context.Context) (Benefits, error) {
	var out Benefits
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/benefits", nil, &out, "")
	return out, err
}

func (c *Client) Simulate(ctx context.Context, plan gym.Plan, withCosts, summary bool) (gym.SimulationResult, error) {
	var out gym.SimulationResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/simulate", map[string]any{
		"plan":       plan,
		"with_costs": withCosts,
		"summary":    summary,
	}, &out, "")
	return out, err
}

func (c *Client) Compare(ctx context.Context, plans []gym.Plan, withCosts, summary bool) ([]planner.Comparison, error) {
	var out struct {
		States []planner.Comparison `json:"states"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/compare", map[string]any{
		"plans":      plans,
		"with_costs": withCosts,
		"summary":    summary,
	}, &out, "")
	return out.States, err
}

// PlanBody is the request body for creating or replacing a saved plan.
func PlanBody(name string, plan gym.Plan) (json.RawMessage, error) {
	return json.Marshal(map[string]any{"name": name, "plan": plan})
}

func (c *Client) SavePlan(ctx context.Context, id string, body json.RawMessage, idem string) (store.PlanRecord, error) {
	method, path := http.MethodPost, "/v1/plans"
	if id != "" {
		method, path = http.MethodPut, "/v1/plans/"+url.PathEscape(id)
	}
	var out store.PlanRecord
	err := c.jsonRequest(ctx, method, path, body, &out, idem)
	return out, err
}

func (c *Client) ListPlans(ctx context.Context) ([]store.PlanRecord, error) {
	var out struct {
		Plans []store.PlanRecord `json:"plans"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/plans", nil, &out, "")
	return out.Plans, err
}

func (c *Client) GetPlan(ctx context.Context, id string) (store.PlanRecord, error) {
	var out store.PlanRecord
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/plans/"+url.PathEscape(id), nil, &out, "")
	return out, err
}

func (c *Client) DeletePlan(ctx context.Context, id string) error {
	return c.jsonRequest(ctx, http.MethodDelete, "/v1/plans/"+url.PathEscape(id), nil, nil, "")
}

func (c *Client) RunPlan(ctx context.Context, id, idem string, summary bool) (planner.RunOutcome, error) {
	path := "/v1/plans/" + url.PathEscape(id) + "/run"
	if summary {
		path += "?summary=true"
	}
	var out planner.RunOutcome
	err := c.jsonRequest(ctx, http.MethodPost, path, nil, &out, idem)
	return out, err
}

func (c *Client) ListRuns(ctx context.Context, id string, limit int) ([]store.RunSummary, error) {
	path := "/v1/plans/" + url.PathEscape(id) + "/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Runs []store.RunSummary `json:"runs"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out.Runs, err
}

func (c *Client) Prices(ctx context.Context) ([]store.PriceEntry, error) {
	var out struct {
		Prices []store.PriceEntry `json:"prices"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/prices", nil, &out, "")
	return out.Prices, err
}

// PriceBody is the request body for updating one item price.
func PriceBody(price decimal.Decimal) (json.RawMessage, error) {
	return json.Marshal(map[string]any{"price": price})
}

func (c *Client) SetPrice(ctx context.Context, itemID string, body json.RawMessage, idem string) (store.PriceEntry, error) {
	var out store.PriceEntry
	err := c.jsonRequest(ctx, http.MethodPut, "/v1/prices/"+url.PathEscape(itemID), body, &out, idem)
	return out, err
}

// Do sends a raw JSON body, used when replaying queued writes.
func (c *Client) Do(ctx context.Context, method, path string, body json.RawMessage, idem string) error {
	var in any
	if len(body) > 0 {
		in = body
	}
	return c.jsonRequest(ctx, method, path, in, nil, idem)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
