package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"sentinel-signals/internal/model"
)

var htmlTags = strings.NewReplacer("<b>", "", "</b>", "")

// ConsoleNotifier prints reports to a terminal with a colored banner.
type ConsoleNotifier struct {
	Out io.Writer
	now func() time.Time
}

// NewConsoleNotifier writes to stdout.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{Out: os.Stdout, now: time.Now}
}

func (c *ConsoleNotifier) Name() string { return "console" }

func (c *ConsoleNotifier) Notify(_ context.Context, msg Message) error {
	title := color.New(color.FgCyan, color.Bold).Sprint("📡 SIGNAL REPORT")
	stamp := color.New(color.FgWhite).Sprintf("%s", c.now().Format("2006-01-02 15:04:05"))
	line := strings.Repeat("=", 60)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n%s  %s", line, title, stamp)
	if msg.Signal != nil {
		fmt.Fprintf(&b, "  %s", directionBadge(msg.Signal.Direction))
	}
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", line, htmlTags.Replace(msg.Text), line)

	_, err := io.WriteString(c.Out, b.String())
	return err
}

func directionBadge(d model.Direction) string {
	switch d {
	case model.DirectionLong:
		return color.New(color.FgGreen, color.Bold).Sprint("▲ LONG")
	case model.DirectionShort:
		return color.New(color.FgRed, color.Bold).Sprint("▼ SHORT")
	default:
		return color.New(color.FgYellow).Sprint("● NEUTRAL")
	}
}
