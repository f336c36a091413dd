package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioConfig configures the SMS sender
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// SMSSender delivers the sms channel through the Twilio messages API
type SMSSender struct {
	cfg        TwilioConfig
	baseURL    string
	httpClient *http.Client
}

// NewSMSSender creates a Twilio SMS sender
func NewSMSSender(cfg TwilioConfig) *SMSSender {
	return &SMSSender{
		cfg:        cfg,
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send implements MessageSender
func (s *SMSSender) Send(ctx context.Context, d Delivery) error {
	if strings.TrimSpace(d.To) == "" {
		return fmt.Errorf("%w: missing phone number", ErrUndeliverable)
	}

	form := url.Values{}
	form.Set("To", d.To)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", d.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(s.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var apiErr twilioError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)

	err = fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, apiErr.Message)
	// 4xx other than rate limiting means the request itself is wrong
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrUndeliverable, err)
	}
	return err
}
