package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/voglhofer/icebox/internal/config"
)

// Catppuccin Mocha palette — mutable so config can override.
var (
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorBlue   = lipgloss.Color("#89b4fa")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorRed    = lipgloss.Color("#f38ba8")
	ColorTeal   = lipgloss.Color("#94e2d5")
	ColorMauve  = lipgloss.Color("#cba6f7")
	ColorMuted  = lipgloss.Color("#5a6278")
	ColorDim    = lipgloss.Color("#3a4055")
	ColorBright = lipgloss.Color("#cdd6f4")
)

// Pre-built styles — rebuilt by rebuildStyles() after color changes.
var (
	styleHeader      lipgloss.Style
	styleDivider     lipgloss.Style
	styleIconMoved   lipgloss.Style
	styleIconPlanned lipgloss.Style
	styleIconSkipped lipgloss.Style
	styleIconFailed  lipgloss.Style
	styleScanWarning lipgloss.Style
	styleFilePath    lipgloss.Style
	styleFileDir     lipgloss.Style
	styleFileSize    lipgloss.Style
	styleFileTime    lipgloss.Style
	styleOwner       lipgloss.Style
	styleReason      lipgloss.Style
	styleError       lipgloss.Style
	styleErrorPath   lipgloss.Style
)

func init() {
	rebuildStyles()
}

// rebuildStyles reconstructs all lipgloss styles from the current color vars.
func rebuildStyles() {
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorBright)
	styleDivider = lipgloss.NewStyle().Foreground(ColorDim)
	styleIconMoved = lipgloss.NewStyle().Foreground(ColorGreen)
	styleIconPlanned = lipgloss.NewStyle().Foreground(ColorBlue)
	styleIconSkipped = lipgloss.NewStyle().Foreground(ColorMuted)
	styleIconFailed = lipgloss.NewStyle().Foreground(ColorRed)
	styleScanWarning = lipgloss.NewStyle().Foreground(ColorYellow)
	styleFilePath = lipgloss.NewStyle().Foreground(ColorBright)
	styleFileDir = lipgloss.NewStyle().Foreground(ColorMuted)
	styleFileSize = lipgloss.NewStyle().Foreground(ColorMuted)
	styleFileTime = lipgloss.NewStyle().Foreground(ColorTeal)
	styleOwner = lipgloss.NewStyle().Foreground(ColorMauve)
	styleReason = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	styleError = lipgloss.NewStyle().Foreground(ColorRed)
	styleErrorPath = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
}

// ApplyTheme overrides colors from a config ThemeConfig and rebuilds all styles.
func ApplyTheme(tc config.ThemeConfig) {
	if tc.Green != nil {
		ColorGreen = lipgloss.Color(*tc.Green)
	}
	if tc.Blue != nil {
		ColorBlue = lipgloss.Color(*tc.Blue)
	}
	if tc.Yellow != nil {
		ColorYellow = lipgloss.Color(*tc.Yellow)
	}
	if tc.Red != nil {
		ColorRed = lipgloss.Color(*tc.Red)
	}
	if tc.Teal != nil {
		ColorTeal = lipgloss.Color(*tc.Teal)
	}
	if tc.Mauve != nil {
		ColorMauve = lipgloss.Color(*tc.Mauve)
	}
	if tc.Muted != nil {
		ColorMuted = lipgloss.Color(*tc.Muted)
	}
	if tc.Dim != nil {
		ColorDim = lipgloss.Color(*tc.Dim)
	}
	if tc.Bright != nil {
		ColorBright = lipgloss.Color(*tc.Bright)
	}
	rebuildStyles()
}
