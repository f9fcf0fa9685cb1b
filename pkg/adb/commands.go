package adb

import (
	"context"
	"errors"
	"net/http"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/devicelab-dev/blockly-runner/pkg/logger"
)

// ============================================================================
// Screen
// ============================================================================

// ScreenSize returns the device screen dimensions in pixels.
func (c *Client) ScreenSize(ctx context.Context) (ScreenSize, error) {
	resp, err := c.get(ctx, "/screen/size")
	if err != nil {
		return ScreenSize{}, err
	}
	var size ScreenSize
	if err := resp.Decode(&size); err != nil || !size.Valid() {
		return ScreenSize{}, &core.ProtocolError{Op: "GET /screen/size", Reason: "missing or invalid width/height", Err: err}
	}
	return size, nil
}

// TakeScreenshot asks the service to capture the screen into filename.
// Services that only expose GET /screenshot answer the POST with 405; the
// capture is then retried as a GET, which always writes screenshot.png.
func (c *Client) TakeScreenshot(ctx context.Context, filename string) (Response, error) {
	if filename == "" {
		filename = DefaultScreenshotFilename
	}
	resp, err := c.post(ctx, "/screenshot", ScreenshotRequest{Filename: filename})
	var remoteErr *core.RemoteCallError
	if errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusMethodNotAllowed {
		logger.Warn("POST /screenshot not allowed, retrying as GET (filename %q ignored)", filename)
		return c.get(ctx, "/screenshot")
	}
	return resp, err
}

// WakeScreen turns the screen on.
func (c *Client) WakeScreen(ctx context.Context) (Response, error) {
	return c.post(ctx, "/screen/wake", nil)
}

// UnlockScreen unlocks with a slide in the given direction.
func (c *Client) UnlockScreen(ctx context.Context, direction string) (Response, error) {
	if direction == "" {
		direction = DefaultUnlockDirection
	}
	return c.post(ctx, "/screen/unlock", UnlockRequest{Direction: direction})
}

// ScreenStatus reports whether the screen is on.
func (c *Client) ScreenStatus(ctx context.Context) (bool, error) {
	resp, err := c.get(ctx, "/screen/status")
	if err != nil {
		return false, err
	}
	on, ok := resp["screen_on"].(bool)
	if !ok {
		return false, &core.ProtocolError{Op: "GET /screen/status", Reason: `missing boolean "screen_on"`}
	}
	return on, nil
}

// KeyboardStatus reports whether the soft keyboard is shown.
func (c *Client) KeyboardStatus(ctx context.Context) (bool, error) {
	resp, err := c.get(ctx, "/keyboard/status")
	if err != nil {
		return false, err
	}
	shown, ok := resp["keyboard_shown"].(bool)
	if !ok {
		return false, &core.ProtocolError{Op: "GET /keyboard/status", Reason: `missing boolean "keyboard_shown"`}
	}
	return shown, nil
}

// ============================================================================
// Input
// ============================================================================

// Click taps at (x, y).
func (c *Client) Click(ctx context.Context, x, y int) (Response, error) {
	return c.post(ctx, "/input/click", PointRequest{X: x, Y: y})
}

// Slide swipes from (x1, y1) to (x2, y2) over durationMs.
func (c *Client) Slide(ctx context.Context, x1, y1, x2, y2, durationMs int) (Response, error) {
	return c.post(ctx, "/input/slide", SlideRequest{
		X1: x1, Y1: y1, X2: x2, Y2: y2,
		DurationMs: durationMs,
	})
}

// LongPress holds at (x, y) for durationMs.
func (c *Client) LongPress(ctx context.Context, x, y, durationMs int) (Response, error) {
	return c.post(ctx, "/input/long-press", LongPressRequest{X: x, Y: y, DurationMs: durationMs})
}

// DoubleTap taps twice at (x, y).
func (c *Client) DoubleTap(ctx context.Context, x, y int) (Response, error) {
	return c.post(ctx, "/input/double-tap", PointRequest{X: x, Y: y})
}

// InputText types text into the focused field.
func (c *Client) InputText(ctx context.Context, text string) (Response, error) {
	return c.post(ctx, "/input/text", TextRequest{Text: text})
}

// ============================================================================
// Navigation & system keys
// ============================================================================

// PressHome presses the home button.
func (c *Client) PressHome(ctx context.Context) (Response, error) {
	return c.post(ctx, PathHome, nil)
}

// PressBack presses the back button.
func (c *Client) PressBack(ctx context.Context) (Response, error) {
	return c.post(ctx, PathBack, nil)
}

// PressRecent opens the recent apps view.
func (c *Client) PressRecent(ctx context.Context) (Response, error) {
	return c.post(ctx, PathRecent, nil)
}

// PressPower presses the power button.
func (c *Client) PressPower(ctx context.Context) (Response, error) {
	return c.post(ctx, "/power/button", nil)
}

// VolumeUp presses volume up.
func (c *Client) VolumeUp(ctx context.Context) (Response, error) {
	return c.post(ctx, "/volume/up", nil)
}

// VolumeDown presses volume down.
func (c *Client) VolumeDown(ctx context.Context) (Response, error) {
	return c.post(ctx, "/volume/down", nil)
}

// ============================================================================
// Apps
// ============================================================================

// OpenApp launches packageName, optionally at a specific activity.
func (c *Client) OpenApp(ctx context.Context, packageName, activity string) (Response, error) {
	return c.post(ctx, "/app/open", AppRequest{PackageName: packageName, Activity: activity})
}

// CloseAllApps closes every running app.
func (c *Client) CloseAllApps(ctx context.Context) (Response, error) {
	return c.post(ctx, PathCloseApps, nil)
}

// CurrentApp returns the foreground package, or "" when none is focused.
func (c *Client) CurrentApp(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, "/app/current")
	if err != nil {
		return "", err
	}
	app, _ := resp["current_app"].(string)
	return app, nil
}

// OpenURL opens url in the device browser.
func (c *Client) OpenURL(ctx context.Context, url string) (Response, error) {
	return c.post(ctx, "/browser/open", URLRequest{URL: url})
}

// ============================================================================
// Convenience gestures (screen size lookup + one gesture)
// ============================================================================

// SwipeUp swipes from 80% to 20% of the height along the vertical center.
func (c *Client) SwipeUp(ctx context.Context, durationMs int) (Response, error) {
	return c.swipe(ctx, DirectionUp, durationMs)
}

// SwipeDown swipes from 20% to 80% of the height.
func (c *Client) SwipeDown(ctx context.Context, durationMs int) (Response, error) {
	return c.swipe(ctx, DirectionDown, durationMs)
}

// SwipeLeft swipes from 80% to 20% of the width along the horizontal center.
func (c *Client) SwipeLeft(ctx context.Context, durationMs int) (Response, error) {
	return c.swipe(ctx, DirectionLeft, durationMs)
}

// SwipeRight swipes from 20% to 80% of the width.
func (c *Client) SwipeRight(ctx context.Context, durationMs int) (Response, error) {
	return c.swipe(ctx, DirectionRight, durationMs)
}

// Swipe dispatches on a direction name.
func (c *Client) Swipe(ctx context.Context, direction string, durationMs int) (Response, error) {
	switch direction {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return c.swipe(ctx, direction, durationMs)
	default:
		return nil, core.ErrInvalidConfig.WithMessage("unknown swipe direction: " + direction)
	}
}

func (c *Client) swipe(ctx context.Context, direction string, durationMs int) (Response, error) {
	if durationMs <= 0 {
		durationMs = DefaultSlideDurationMs
	}
	size, err := c.ScreenSize(ctx)
	if err != nil {
		return nil, err
	}
	x1, y1, x2, y2 := swipeCoords(size, direction)
	return c.Slide(ctx, x1, y1, x2, y2, durationMs)
}

// swipeCoords computes start and end points for a directional swipe.
func swipeCoords(size ScreenSize, direction string) (x1, y1, x2, y2 int) {
	cx, cy := size.Center()
	near := func(n int) int { return n * 2 / 10 }
	far := func(n int) int { return n * 8 / 10 }

	switch direction {
	case DirectionUp:
		return cx, far(size.Height), cx, near(size.Height)
	case DirectionDown:
		return cx, near(size.Height), cx, far(size.Height)
	case DirectionLeft:
		return far(size.Width), cy, near(size.Width), cy
	default:
		return near(size.Width), cy, far(size.Width), cy
	}
}

// ClickCenter taps the middle of the screen.
func (c *Client) ClickCenter(ctx context.Context) (Response, error) {
	size, err := c.ScreenSize(ctx)
	if err != nil {
		return nil, err
	}
	x, y := size.Center()
	return c.Click(ctx, x, y)
}
