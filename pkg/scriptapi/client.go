// Package scriptapi is the HTTP client for the script-execution service.
//
// The service interprets generated scripts statement by statement, drives the
// device-control service on our behalf and performs template matching and OCR.
package scriptapi

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

// DefaultBaseURL is where the script-execution service listens by default.
const DefaultBaseURL = "http://localhost:8001"

// Client talks to the script-execution service.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{})
}

// NewClientWithHTTP creates a client using a caller-supplied http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// BaseURL returns the service address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	Code string `json:"code"`
}

// Health from GET /health.
type Health struct {
	Status          string `json:"status"`
	ADBAPIConnected bool   `json:"adb_api_connected"`
	ADBAPIURL       string `json:"adb_api_url"`
}

// Healthy reports whether the service is up and reaches the device service.
func (h *Health) Healthy() bool {
	return h.Status == "healthy" && h.ADBAPIConnected
}

// RemoteReset is the server-side reset report from POST /reset-device.
type RemoteReset struct {
	Success bool              `json:"success"`
	Results []RemoteResetStep `json:"results"`
	Message string            `json:"message"`
}

// RemoteResetStep is one step of a server-side reset. Action is a
// human-readable description there, and Result is whatever the service relayed.
type RemoteResetStep struct {
	Action  string      `json:"action"`
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SaveTemplateRequest is the body of POST /templates/save-cropped.
type SaveTemplateRequest struct {
	Filename  string `json:"filename"`
	ImageData string `json:"image_data"`
}

// SavedTemplate is the service's answer to a template upload.
type SavedTemplate struct {
	Message   string `json:"message"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// Execute submits script code and returns the validated per-statement result.
func (c *Client) Execute(ctx context.Context, code string) (*core.ExecutionResult, error) {
	const op = "POST /execute"

	body, err := c.do(ctx, http.MethodPost, "/execute", ExecuteRequest{Code: code})
	if err != nil {
		return nil, err
	}

	result, err := core.ParseExecutionResult(body)
	if err != nil {
		return nil, &core.ProtocolError{
			Op:      op,
			Reason:  "malformed execution result",
			Snippet: core.Snippet(body, 200),
			Err:     err,
		}
	}
	return result, nil
}

// Health queries the service status.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ResetDevice asks the service to run its own reset sequence.
func (c *Client) ResetDevice(ctx context.Context) (*RemoteReset, error) {
	var r RemoteReset
	if err := c.doJSON(ctx, http.MethodPost, "/reset-device", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveCroppedTemplate uploads a PNG data URI to be stored as a reusable template.
func (c *Client) SaveCroppedTemplate(ctx context.Context, filename, dataURI string) (*SavedTemplate, error) {
	var saved SavedTemplate
	req := SaveTemplateRequest{Filename: filename, ImageData: dataURI}
	if err := c.doJSON(ctx, http.MethodPost, "/templates/save-cropped", req, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out interface{}) error {
	body, err := c.do(ctx, method, path, reqBody)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &core.ProtocolError{
			Op:      method + " " + path,
			Reason:  "response does not match the expected shape",
			Snippet: core.Snippet(body, 200),
			Err:     err,
		}
	}
	return nil
}

// do sends one request and returns the raw body of a 2xx JSON response.
func (c *Client) do(ctx context.Context, method, path string, reqBody interface{}) ([]byte, error) {
	op := method + " " + path
	start := time.Now()

	var r io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.NetworkError{Op: op, URL: req.URL.String(), Err: fmt.Errorf("read response: %w", err)}
	}
	logger.Debug("%s [%v] status=%d bytes=%d", op, elapsed, resp.StatusCode, len(body))

	// HTML is checked before the status so a foreign error page is a protocol error.
	if looksLikeHTML(body) {
		return nil, &core.ProtocolError{
			Op:      op,
			Reason:  fmt.Sprintf("received an HTML page instead of JSON (status %d), check the service at %s", resp.StatusCode, c.baseURL),
			Snippet: core.Snippet(body, 200),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.RemoteCallError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       core.Snippet(body, 500),
			Detail:     errorDetail(body),
		}
	}
	return body, nil
}

// looksLikeHTML reports whether body is an HTML document rather than JSON.
func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff")
	n := len(trimmed)
	if n > 16 {
		n = 16
	}
	head := strings.ToLower(string(trimmed[:n]))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

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
