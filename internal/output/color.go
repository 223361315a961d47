package output

import (
	"fmt"

	"github.com/fatih/color"
)

// ColorHelper colours report cells. It is a no-op when colour is disabled.
type ColorHelper struct {
	enabled bool
}

// NewColorHelper creates a color helper.
// Colors are enabled only when outputting to a terminal
func NewColorHelper() *ColorHelper {
	return &ColorHelper{
		enabled: !color.NoColor,
	}
}

func (c *ColorHelper) paint(text string, attrs ...color.Attribute) string {
	if !c.enabled {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// Success returns green text.
func (c *ColorHelper) Success(text string) string { return c.paint(text, color.FgGreen) }

// Failure returns red text.
func (c *ColorHelper) Failure(text string) string { return c.paint(text, color.FgRed) }

// Warning returns yellow text.
func (c *ColorHelper) Warning(text string) string { return c.paint(text, color.FgYellow) }

// Info returns cyan text.
func (c *ColorHelper) Info(text string) string { return c.paint(text, color.FgCyan) }

// Muted returns gray text.
func (c *ColorHelper) Muted(text string) string { return c.paint(text, color.FgHiBlack) }

// Bold returns bold text.
func (c *ColorHelper) Bold(text string) string { return c.paint(text, color.Bold) }

// Header returns bold cyan text for section headers
func (c *ColorHelper) Header(text string) string { return c.paint(text, color.FgCyan, color.Bold) }

// FormatSuccessRate colours the share of successful calls, given the error
// rate in [0, 1].
func (c *ColorHelper) FormatSuccessRate(errorRate float64) string {
	pct := (1 - errorRate) * 100
	text := fmt.Sprintf("%.1f%%", pct)

	switch {
	case errorRate == 0:
		return c.Success(text)
	case pct >= 90:
		return c.Warning(text)
	default:
		return c.Failure(text)
	}
}

// FormatPosition renders a 1-based ranking position. The winner is bold.
func (c *ColorHelper) FormatPosition(pos int) string {
	text := fmt.Sprintf("%d.", pos)
	if pos == 1 {
		return c.Bold(c.Success(text))
	}
	return text
}

// FormatHealth renders a probe outcome.
func (c *ColorHelper) FormatHealth(err error) string {
	if err == nil {
		return c.Success("✓ OK")
	}
	return c.Failure("✗ DOWN")
}
