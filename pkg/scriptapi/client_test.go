package scriptapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTP(server.URL, server.Client())
}

func TestExecute_SingleClick(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/execute", r.URL.Path)

		var req ExecuteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "click(10,20);", req.Code)

		_, _ = w.Write([]byte(`{
			"success": true,
			"total_functions": 1,
			"successful_functions": 1,
			"results": [{"function": "click", "args": [10, 20], "success": true}],
			"errors": []
		}`))
	})

	result, err := client.Execute(context.Background(), "click(10,20);")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalFunctions)
	assert.Equal(t, 1, result.SuccessfulFunctions)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "click", result.Results[0].Function)
	assert.Equal(t, []interface{}{int64(10), int64(20)}, result.Results[0].Args)
	assert.True(t, result.Results[0].Success)
	assert.Empty(t, result.Errors)
}

func TestExecute_HTMLBody(t *testing.T) {
	bodies := []string{
		"<!DOCTYPE html><html><body>Not Found</body></html>",
		"  \n<html><head></head></html>",
		"<!doctype html>",
	}

	for _, body := range bodies {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(body))
		})

		_, err := client.Execute(context.Background(), "wait(1);")

		var protoErr *core.ProtocolError
		require.True(t, errors.As(err, &protoErr), "body %q", body)
		assert.Contains(t, err.Error(), "HTML page instead of JSON")
		assert.Equal(t, core.ErrCategoryProtocol, core.CategoryOf(err))
	}
}

func TestExecute_HTMLErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Cannot POST /execute</body></html>"))
	})

	_, err := client.Execute(context.Background(), "click(10,20);")

	var protoErr *core.ProtocolError
	require.True(t, errors.As(err, &protoErr), "got %T: %v", err, err)
	assert.Contains(t, err.Error(), "HTML page instead of JSON (status 404)")

	var remoteErr *core.RemoteCallError
	assert.False(t, errors.As(err, &remoteErr))
}

func TestExecute_SchemaViolation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "results": []}`))
	})

	_, err := client.Execute(context.Background(), "wait(1);")

	var protoErr *core.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Contains(t, err.Error(), "total_functions")
}

func TestExecute_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Script execution failed: boom"}`))
	})

	_, err := client.Execute(context.Background(), "click(1,2);")

	var remoteErr *core.RemoteCallError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, 500, remoteErr.StatusCode)
	assert.Equal(t, "Script execution failed: boom", remoteErr.Detail)
}

func TestExecute_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url).Execute(context.Background(), "click(1,2);")

	var netErr *core.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "POST /execute", netErr.Op)
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy","adb_api_connected":false,"adb_api_url":"http://localhost:8000"}`))
	})

	h, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "http://localhost:8000", h.ADBAPIURL)
	assert.False(t, h.Healthy(), "not healthy while the device service is unreachable")
}

func TestResetDevice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reset-device", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"success": false,
			"results": [
				{"action": "close all apps", "success": false, "error": "API call failed: 500"},
				{"action": "go home", "success": true, "result": "{\"message\":\"ok\"}"}
			],
			"message": "reset done: 1/2"
		}`))
	})

	reset, err := client.ResetDevice(context.Background())
	require.NoError(t, err)
	assert.False(t, reset.Success)
	require.Len(t, reset.Results, 2)
	assert.False(t, reset.Results[0].Success)
	assert.Equal(t, "API call failed: 500", reset.Results[0].Error)
	assert.True(t, reset.Results[1].Success)
}

func TestSaveCroppedTemplate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/templates/save-cropped", r.URL.Path)

		var req SaveTemplateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "login", req.Filename)
		assert.Equal(t, "data:image/png;base64,AAAA", req.ImageData)

		_, _ = w.Write([]byte(`{"message":"saved","filename":"login.png","path":"templates/login.png","size_bytes":3}`))
	})

	saved, err := client.SaveCroppedTemplate(context.Background(), "login", "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "login.png", saved.Filename)
	assert.Equal(t, "templates/login.png", saved.Path)
	assert.Equal(t, int64(3), saved.SizeBytes)
}

func TestSaveCroppedTemplate_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"invalid image data"}`))
	})

	_, err := client.SaveCroppedTemplate(context.Background(), "x", "data:image/png;base64,")
	var remoteErr *core.RemoteCallError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "invalid image data", remoteErr.Detail)
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, looksLikeHTML([]byte("<HTML>")))
	assert.True(t, looksLikeHTML([]byte("\ufeff<!DOCTYPE html>")))
	assert.False(t, looksLikeHTML([]byte(`{"html": "<html>"}`)))
	assert.False(t, looksLikeHTML(nil))
}
