package adb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/devicelab-dev/blockly-runner/pkg/logger"
)

// DefaultBaseURL is where the device-control service listens by default.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the device-control service. Each method is one HTTP call.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client for the given base URL.
// No client-side timeout is set; callers bound calls through the context.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{})
}

// NewClientWithHTTP creates a client using a caller-supplied http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the service address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request makes an HTTP request and returns the decoded JSON object.
func (c *Client) request(ctx context.Context, method, path string, body interface{}) (Response, error) {
	op := method + " " + path
	start := time.Now()

	var reqBody io.Reader
	var bodyStr string
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
		bodyStr = string(data)
		if len(bodyStr) > 100 {
			bodyStr = bodyStr[:100] + "..."
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("%s [%v] ERROR: %v", op, elapsed, err)
		return nil, &core.NetworkError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.NetworkError{Op: op, URL: req.URL.String(), Err: fmt.Errorf("read response: %w", err)}
	}

	status := "OK"
	if resp.StatusCode >= 300 {
		status = fmt.Sprintf("ERR:%d", resp.StatusCode)
	}
	logger.Debug("%s [%v] %s body=%s", op, elapsed, status, bodyStr)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.RemoteCallError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       core.Snippet(respBody, 500),
			Detail:     errorDetail(respBody),
		}
	}

	var decoded Response
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, &core.ProtocolError{
			Op:      op,
			Reason:  "response is not a JSON object",
			Snippet: core.Snippet(respBody, 200),
			Err:     err,
		}
	}
	if decoded == nil {
		decoded = Response{}
	}

	return decoded, nil
}

// errorDetail extracts the "detail" field of a FastAPI-style error body.
func errorDetail(body []byte) string {
	var errResp struct {
		Detail interface{} `json:"detail"`
	}
	if json.Unmarshal(body, &errResp) != nil || errResp.Detail == nil {
		return ""
	}
	if s, ok := errResp.Detail.(string); ok {
		return s
	}
	data, err := json.Marshal(errResp.Detail)
	if err != nil {
		return ""
	}
	return string(data)
}

func (c *Client) get(ctx context.Context, path string) (Response, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (Response, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

// Health reports the service and device connection status.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return nil, err
	}
	var hs HealthStatus
	if err := resp.Decode(&hs); err != nil {
		return nil, &core.ProtocolError{Op: "GET /health", Reason: "malformed health response", Err: err}
	}
	return &hs, nil
}

// Devices lists the devices visible to the service.
func (c *Client) Devices(ctx context.Context) (*DeviceList, error) {
	resp, err := c.get(ctx, "/devices")
	if err != nil {
		return nil, err
	}
	var dl DeviceList
	if err := resp.Decode(&dl); err != nil {
		return nil, &core.ProtocolError{Op: "GET /devices", Reason: "malformed device list", Err: err}
	}
	return &dl, nil
}

// InitDevice (re)binds the service to a device. Empty deviceID selects the default.
func (c *Client) InitDevice(ctx context.Context, deviceID string) (Response, error) {
	req := InitRequest{}
	if deviceID != "" {
		req.DeviceID = &deviceID
	}
	return c.post(ctx, "/init", req)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
