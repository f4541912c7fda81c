// Package intervals talks to the intervals.icu athlete API.
package intervals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Activity is the subset of an intervals.icu activity we import.
type Activity struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Calories  float64 `json:"calories"`
	StartDate string  `json:"start_date_local"`
}

type Wellness struct {
	ID           string `json:"id"`
	KcalConsumed int    `json:"kcalConsumed"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Credentials authenticate one athlete. intervals.icu uses basic auth with
// the fixed user name API_KEY.
type Credentials struct {
	AthleteID string
	APIKey    string
}

func (c *Client) do(ctx context.Context, creds Credentials, method, path string, body interface{}, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode intervals request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create intervals request: %w", err)
	}
	req.SetBasicAuth("API_KEY", creds.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call intervals: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read intervals response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("intervals API error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse intervals response: %w", err)
	}
	return nil
}

func athletePath(id string) string {
	return "/api/v1/athlete/" + url.PathEscape(id)
}

// Activities lists the athlete's activities on date (YYYY-MM-DD).
func (c *Client) Activities(ctx context.Context, creds Credentials, date string) ([]Activity, error) {
	q := url.Values{"oldest": {date}, "newest": {date}}
	var out []Activity
	if err := c.do(ctx, creds, http.MethodGet, athletePath(creds.AthleteID)+"/activities?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertWellness writes the consumed calories of date.
func (c *Client) UpsertWellness(ctx context.Context, creds Credentials, date string, kcalConsumed int) error {
	body := Wellness{ID: date, KcalConsumed: kcalConsumed}
	return c.do(ctx, creds, http.MethodPut, athletePath(creds.AthleteID)+"/wellness/"+url.PathEscape(date), body, nil)
}
