package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ImportSecretHeader carries the shared secret the API accepts in place of a
// session cookie.
const ImportSecretHeader = "X-Admin-Import-Secret"

// ErrMissingSecret is returned when no import secret is configured.
var ErrMissingSecret = errors.New("missing ADMIN_IMPORT_SECRET")

// StatusError is a non-2xx reply from the API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Client calls the venue create endpoint.
type Client struct {
	endpoint string
	secret   string
	http     *http.Client
}

// NewClient returns a Client posting to baseURL/api/venues-create. A nil
// httpClient uses a 30 second timeout.
func NewClient(baseURL, secret string, httpClient *http.Client) (*Client, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/venues-create",
		secret:   secret,
		http:     httpClient,
	}, nil
}

type createReply struct {
	OK       bool   `json:"ok"`
	Inserted bool   `json:"inserted"`
	Error    string `json:"error"`
}

// CreateVenue upserts rec and reports whether the API inserted a new row.
func (c *Client) CreateVenue(ctx context.Context, rec Record) (bool, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode venue: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ImportSecretHeader, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("post venue: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read reply: %w", err)
	}

	var reply createReply
	parseErr := json.Unmarshal(raw, &reply)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := reply.Error
		if parseErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return false, &StatusError{Status: resp.StatusCode, Message: msg}
	}
	return reply.Inserted, nil
}
