package castapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// defaultTimeout applies when New is given a non-positive timeout.
	defaultTimeout = 3 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 1 << 20

	// maxErrorBody caps the body excerpt carried by errors.
	maxErrorBody = 256

	// requestIDHeader correlates bridge logs with cast service logs.
	requestIDHeader = "X-Request-ID"
)

// Client talks to the cast HTTP service.
//
// Every request carries the configured timeout. The client holds no state
// between calls.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a client for the service at baseURL (e.g. "http://cast.local:3000/").
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		timeout:    timeout,
		httpClient: &http.Client{},
	}, nil
}

// BaseURL returns the normalised service URL, always ending in "/".
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Devices fetches the current status of every device (GET device/).
//
// Any transport failure, non-2xx status or undecodable body is returned
// as a *FetchError.
func (c *Client) Devices(ctx context.Context) ([]DeviceStatus, error) {
	status, body, err := c.do(ctx, http.MethodGet, "device/", nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if !isSuccess(status) {
		return nil, &FetchError{Status: status, Body: excerpt(body)}
	}

	var devices []DeviceStatus
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, &FetchError{Status: status, Err: fmt.Errorf("decoding device list: %w", err)}
	}

	return devices, nil
}

// Stop stops playback on a device (GET device/{id}/stop).
func (c *Client) Stop(ctx context.Context, deviceID string) error {
	return c.command(ctx, "stop", deviceID, http.MethodGet, devicePath(deviceID, "stop"), nil)
}

// PlayMedia asks a device to play or speak title (POST device/{id}/playMedia).
func (c *Client) PlayMedia(ctx context.Context, deviceID, title, locale string) error {
	body := []mediaRequest{{MediaTitle: title, GoogleTTS: locale}}
	return c.command(ctx, "playMedia", deviceID, http.MethodPost, devicePath(deviceID, "playMedia"), body)
}

// SetVolume sets a device volume (GET device/{id}/volume/{level}).
func (c *Client) SetVolume(ctx context.Context, deviceID string, level int) error {
	return c.command(ctx, "volume", deviceID, http.MethodGet,
		devicePath(deviceID, "volume", strconv.Itoa(level)), nil)
}

// Action invokes a named playback action such as play, pause or
// next_track (GET device/{id}/{action}).
func (c *Client) Action(ctx context.Context, deviceID, action string) error {
	return c.command(ctx, action, deviceID, http.MethodGet, devicePath(deviceID, action), nil)
}

// AssistantCommand sends a free-text command to the assistant
// (POST assistant/command).
func (c *Client) AssistantCommand(ctx context.Context, message string) error {
	return c.command(ctx, "assistant", "", http.MethodPost, "assistant/command",
		assistantRequest{Message: message})
}

// command runs a request whose only interesting outcome is success.
func (c *Client) command(ctx context.Context, op, deviceID, method, path string, payload any) error {
	status, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return &CommandError{Op: op, DeviceID: deviceID, Err: err}
	}
	if !isSuccess(status) {
		return &CommandError{Op: op, DeviceID: deviceID, Status: status, Body: excerpt(body)}
	}
	return nil
}

// do performs one request under the client timeout and reads the body.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// devicePath builds device/{id}/{segments...} with each part path-escaped.
func devicePath(deviceID string, segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, "device", url.PathEscape(deviceID))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// excerpt trims a response body for inclusion in an error.
func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
