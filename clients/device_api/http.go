package device_api

import (
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
)

const (
	DefaultPollTimeout    = 2 * time.Second
	DefaultControlTimeout = 3 * time.Second
)

// StatusError is returned when a device answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device returned status %d: %s", e.Code, e.Body)
}

type clientImpl struct {
	scheme        string
	pollClient    *http.Client
	controlClient *http.Client
}

type Config struct {
	PollTimeout    time.Duration
	ControlTimeout time.Duration
	// Scheme defaults to "http".
	Scheme string
}

func NewClient(cfg *Config) (DeviceAPI, error) {
	if cfg == nil {
		return nil, errors.New("missing parameter: cfg")
	}

	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}

	controlTimeout := cfg.ControlTimeout
	if controlTimeout <= 0 {
		controlTimeout = DefaultControlTimeout
	}

	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}

	return &clientImpl{
		scheme:        scheme,
		pollClient:    &http.Client{Timeout: pollTimeout},
		controlClient: &http.Client{Timeout: controlTimeout},
	}, nil
}

func (c *clientImpl) Info(ctx context.Context, addr string) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(addr, "info"), nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(c.pollClient, req)
	if err != nil {
		return nil, err
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding info from %s: %w", addr, err)
	}

	return &info, nil
}

func (c *clientImpl) SetRelay(ctx context.Context, addr string, relay int, state string) (string, error) {
	u := c.url(addr, "relay/"+strconv.Itoa(relay)) + "?" + url.Values{"state": {state}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", err
	}

	body, err := c.do(c.controlClient, req)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func (c *clientImpl) url(addr, path string) string {
	return c.scheme + "://" + addr + "/" + path
}

func (c *clientImpl) do(httpClient *http.Client, req *http.Request) ([]byte, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}
