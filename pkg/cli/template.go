package cli

import (
	"fmt"
	"os"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/devicelab-dev/blockly-runner/pkg/logger"
	"github.com/devicelab-dev/blockly-runner/pkg/report"
	"github.com/devicelab-dev/blockly-runner/pkg/template"
	"github.com/urfave/cli/v2"
)

func newTemplateCommand() *cli.Command {
	return &cli.Command{
		Name:  "template",
		Usage: "Manage template images used by find_template and check_template",
		Subcommands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "Upload a screenshot region as a template",
				ArgsUsage: "<png>",
				Description: `Crop a PNG screenshot and store it on the script-execution service.

Examples:
  blockly-runner template save --name login.png screen.png
  blockly-runner template save --name ok.png --rect 100,200,300,260 screen.png`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Template file name on the service",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "rect",
						Usage: "Region to keep as x1,y1,x2,y2 (default: whole image)",
					},
				},
				Action: runTemplateSave,
			},
		},
	}
}

func runTemplateSave(c *cli.Context) error {
	if c.NArg() < 1 {
		return core.ErrMissingRequired.WithMessage("a PNG file is required")
	}

	name := c.String("name")
	if err := template.ValidateName(name); err != nil {
		return err
	}

	data, err := os.ReadFile(c.Args().First()) //#nosec G304 -- user-provided image
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	size, err := template.CheckPNG(data)
	if err != nil {
		return err
	}
	logger.Debug("template source %s is %dx%d", c.Args().First(), size.X, size.Y)

	if r := c.String("rect"); r != "" {
		rect, err := template.ParseRect(r)
		if err != nil {
			return err
		}
		if data, err = template.Crop(data, rect); err != nil {
			return err
		}
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	saved, err := s.scripts.SaveCroppedTemplate(c.Context, name, template.DataURI(data))
	if err != nil {
		s.printer.Status(report.FailureStatus(err))
		return err
	}

	logger.Info("Template saved: %s (%d bytes)", saved.Path, saved.SizeBytes)
	s.printer.Status(report.Status{
		Message: fmt.Sprintf("template saved: %s (%d bytes)", saved.Path, saved.SizeBytes),
		Level:   report.LevelSuccess,
	})
	return nil
}
