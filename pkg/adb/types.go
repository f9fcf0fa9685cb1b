// Package adb provides an HTTP client for the device-control service.
package adb

import (
	"encoding/json"
	"fmt"
)

// Response is a decoded JSON object returned by the service.
type Response map[string]interface{}

// Message returns the "message" field, or "" when absent.
func (r Response) Message() string {
	s, _ := r["message"].(string)
	return s
}

// Decode re-decodes the response into a typed struct.
func (r Response) Decode(v interface{}) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// InitRequest for binding to a device.
type InitRequest struct {
	DeviceID *string `json:"device_id"`
}

// PointRequest for click and double tap.
type PointRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SlideRequest for swipe gestures.
type SlideRequest struct {
	X1         int `json:"x1"`
	Y1         int `json:"y1"`
	X2         int `json:"x2"`
	Y2         int `json:"y2"`
	DurationMs int `json:"duration_ms"`
}

// LongPressRequest for long press gestures.
type LongPressRequest struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	DurationMs int `json:"duration_ms"`
}

// TextRequest for typing text.
type TextRequest struct {
	Text string `json:"text"`
}

// UnlockRequest for unlocking the screen.
type UnlockRequest struct {
	Direction string `json:"direction"`
}

// AppRequest for launching an app.
type AppRequest struct {
	PackageName string `json:"package_name"`
	Activity    string `json:"activity,omitempty"`
}

// URLRequest for opening a URL in the browser.
type URLRequest struct {
	URL string `json:"url"`
}

// ScreenshotRequest names the file the service stores the capture under.
type ScreenshotRequest struct {
	Filename string `json:"filename"`
}

// ScreenSize from /screen/size.
type ScreenSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the middle of the screen.
func (s ScreenSize) Center() (int, int) {
	return s.Width / 2, s.Height / 2
}

// Valid reports whether both dimensions are positive.
func (s ScreenSize) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

func (s ScreenSize) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// HealthStatus from /health.
type HealthStatus struct {
	Status           string   `json:"status"`
	Message          string   `json:"message,omitempty"`
	Error            string   `json:"error,omitempty"`
	ADBInitialized   bool     `json:"adb_initialized"`
	ConnectedDevices int      `json:"connected_devices"`
	Devices          []string `json:"devices,omitempty"`
}

// Healthy reports whether the service considers itself healthy.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// DeviceList from /devices.
type DeviceList struct {
	Devices []string `json:"devices"`
	Count   int      `json:"count"`
}

// Default gesture parameters.
const (
	DefaultSlideDurationMs     = 300
	DefaultLongPressDurationMs = 1000
	DefaultScreenshotFilename  = "screenshot.png"
	DefaultUnlockDirection     = DirectionUp
)

// Swipe/unlock directions.
const (
	DirectionUp    = "up"
	DirectionDown  = "down"
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// Endpoint paths used by the reset routine and by callers that log actions.
const (
	PathCloseApps = "/app/close"
	PathHome      = "/navigation/home"
	PathBack      = "/navigation/back"
	PathRecent    = "/navigation/recent"
)
