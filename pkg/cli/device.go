package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/devicelab-dev/blockly-runner/pkg/adb"
	"github.com/devicelab-dev/blockly-runner/pkg/report"
	"github.com/urfave/cli/v2"
)

// deviceFunc performs one device action. The result is printed as returned.
type deviceFunc func(ctx context.Context, client *adb.Client, c *cli.Context) (interface{}, error)

func durationFlag(value int) *cli.IntFlag {
	return &cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Gesture duration in ms", Value: value}
}

func newDeviceCommand() *cli.Command {
	return &cli.Command{
		Name:  "device",
		Usage: "Send a single action to the device-control service",
		Description: `Drive the device directly, one HTTP call per action.

Examples:
  blockly-runner device click 540 1200
  blockly-runner device slide --duration 500 540 1600 540 400
  blockly-runner device swipe up
  blockly-runner device text "hello world"
  blockly-runner device open-app com.android.settings`,
		Subcommands: []*cli.Command{
			deviceAction("click", "Tap a point", "<x> <y>", 2, nil,
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					xy, err := intArgs(c, "x", "y")
					if err != nil {
						return nil, err
					}
					return d.Click(ctx, xy[0], xy[1])
				}),
			deviceAction("click-center", "Tap the middle of the screen", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.ClickCenter(ctx)
				}),
			deviceAction("slide", "Swipe between two points", "<x1> <y1> <x2> <y2>", 4,
				[]cli.Flag{durationFlag(adb.DefaultSlideDurationMs)},
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					v, err := intArgs(c, "x1", "y1", "x2", "y2")
					if err != nil {
						return nil, err
					}
					return d.Slide(ctx, v[0], v[1], v[2], v[3], c.Int("duration"))
				}),
			deviceAction("swipe", "Swipe across the screen (up, down, left, right)", "<direction>", 1,
				[]cli.Flag{durationFlag(adb.DefaultSlideDurationMs)},
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					return d.Swipe(ctx, c.Args().First(), c.Int("duration"))
				}),
			deviceAction("long-press", "Press and hold a point", "<x> <y>", 2,
				[]cli.Flag{durationFlag(adb.DefaultLongPressDurationMs)},
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					xy, err := intArgs(c, "x", "y")
					if err != nil {
						return nil, err
					}
					return d.LongPress(ctx, xy[0], xy[1], c.Int("duration"))
				}),
			deviceAction("double-tap", "Tap a point twice", "<x> <y>", 2, nil,
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					xy, err := intArgs(c, "x", "y")
					if err != nil {
						return nil, err
					}
					return d.DoubleTap(ctx, xy[0], xy[1])
				}),
			deviceAction("text", "Type text into the focused field", "<text>", 1, nil,
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					return d.InputText(ctx, c.Args().First())
				}),
			deviceAction("home", "Press the home button", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.PressHome(ctx)
				}),
			deviceAction("back", "Press the back button", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.PressBack(ctx)
				}),
			deviceAction("recent", "Open recent apps", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.PressRecent(ctx)
				}),
			deviceAction("power", "Press the power button", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.PressPower(ctx)
				}),
			deviceAction("volume-up", "Raise the volume", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.VolumeUp(ctx)
				}),
			deviceAction("volume-down", "Lower the volume", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.VolumeDown(ctx)
				}),
			deviceAction("open-app", "Launch an app by package name", "<package>", 1,
				[]cli.Flag{&cli.StringFlag{Name: "activity", Usage: "Activity to start"}},
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					return d.OpenApp(ctx, c.Args().First(), c.String("activity"))
				}),
			deviceAction("close-apps", "Close all running apps", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.CloseAllApps(ctx)
				}),
			deviceAction("current-app", "Print the foreground app", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.CurrentApp(ctx)
				}),
			deviceAction("open-url", "Open a URL in the browser", "<url>", 1, nil,
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					return d.OpenURL(ctx, c.Args().First())
				}),
			deviceAction("screenshot", "Capture the screen on the service host", "", 0,
				[]cli.Flag{&cli.StringFlag{Name: "filename", Usage: "File name on the service host", Value: adb.DefaultScreenshotFilename}},
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					return d.TakeScreenshot(ctx, c.String("filename"))
				}),
			deviceAction("screen-size", "Print the screen size", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					size, err := d.ScreenSize(ctx)
					if err != nil {
						return nil, err
					}
					return size.String(), nil
				}),
			deviceAction("wake", "Wake the screen", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.WakeScreen(ctx)
				}),
			deviceAction("unlock", "Unlock the screen with a swipe", "", 0,
				[]cli.Flag{&cli.StringFlag{Name: "direction", Usage: "Swipe direction", Value: adb.DefaultUnlockDirection}},
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					return d.UnlockScreen(ctx, c.String("direction"))
				}),
			deviceAction("screen-status", "Print whether the screen is on", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					on, err := d.ScreenStatus(ctx)
					if err != nil {
						return nil, err
					}
					return onOff(on), nil
				}),
			deviceAction("keyboard-status", "Print whether the soft keyboard is shown", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					shown, err := d.KeyboardStatus(ctx)
					if err != nil {
						return nil, err
					}
					if shown {
						return "keyboard shown", nil
					}
					return "keyboard hidden", nil
				}),
			deviceAction("devices", "List devices the service can see", "", 0, nil,
				func(ctx context.Context, d *adb.Client, _ *cli.Context) (interface{}, error) {
					return d.Devices(ctx)
				}),
			deviceAction("init", "Bind the service to a device (default: first available)", "[device-id]", 0, nil,
				func(ctx context.Context, d *adb.Client, c *cli.Context) (interface{}, error) {
					return d.InitDevice(ctx, c.Args().First())
				}),
		},
	}
}

// deviceAction builds one device subcommand requiring nargs arguments.
func deviceAction(name, usage, argsUsage string, nargs int, flags []cli.Flag, fn deviceFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() < nargs {
				return fmt.Errorf("%s requires %d argument(s): %s", name, nargs, argsUsage)
			}

			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := fn(c.Context, s.adb, c)
			if err != nil {
				s.printer.Status(report.Status{Message: fmt.Sprintf("%s failed: %v", name, err), Level: report.LevelError})
				return err
			}
			return printResult(s, result)
		},
	}
}

func printResult(s *session, result interface{}) error {
	switch v := result.(type) {
	case string:
		fmt.Fprintln(s.out, v)
	case adb.Response:
		if msg := v.Message(); msg != "" {
			s.printer.Status(report.Status{Message: msg, Level: report.LevelSuccess})
			return nil
		}
		return printJSON(s, v)
	default:
		return printJSON(s, v)
	}
	return nil
}

func printJSON(s *session, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

// intArgs parses the leading positional arguments as integers.
func intArgs(c *cli.Context, names ...string) ([]int, error) {
	values := make([]int, len(names))
	for i, name := range names {
		n, err := strconv.Atoi(c.Args().Get(i))
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: must be an integer", name, c.Args().Get(i))
		}
		values[i] = n
	}
	return values, nil
}

func onOff(on bool) string {
	if on {
		return "screen on"
	}
	return "screen off"
}
