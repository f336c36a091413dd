package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

const defaultTimeout = 15 * time.Second

// errorEnvelope mirrors the API's error body
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the RSVP endpoints of the API. It satisfies rsvp.Backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the API rooted at baseURL. A nil httpClient gets
// one with a default timeout.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Fetch loads the RSVP record behind token
func (c *Client) Fetch(ctx context.Context, token string) (*models.RSVPRecord, error) {
	var record models.RSVPRecord
	if err := c.do(ctx, http.MethodGet, c.rsvpPath(token, ""), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ValidateName asks the API whether fullname matches the invited guest
func (c *Client) ValidateName(ctx context.Context, token, fullname string) error {
	body := models.ValidateNameRequest{Fullname: fullname}
	return c.do(ctx, http.MethodPost, c.rsvpPath(token, "/validate-name"), body, nil)
}

// Submit stores the guest's answer and returns the stored state
func (c *Client) Submit(ctx context.Context, token string, req models.SubmitRSVPRequest) (*models.RSVPState, error) {
	var state models.RSVPState
	if err := c.do(ctx, http.MethodPost, c.rsvpPath(token, "/submit"), req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) rsvpPath(token, suffix string) string {
	return c.baseURL + "/rsvp/" + url.PathEscape(token) + suffix
}

func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns an error response into an AppError carrying the API's
// code and message. Bodies that are not the API envelope keep only the status.
func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
		c.logger.Debug("api returned error",
			slog.Int("status", resp.StatusCode),
			slog.String("code", envelope.Error.Code),
		)
		return &models.AppError{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
		}
	}

	return fmt.Errorf("unexpected status %d from API", resp.StatusCode)
}
