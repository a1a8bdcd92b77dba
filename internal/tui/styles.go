package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary    = lipgloss.Color("#00BFFF") // Cyan — primary accent
	colorAccent     = lipgloss.Color("#FFD700") // Gold — pending selection
	colorSuccess    = lipgloss.Color("#00E676") // Green — recorded span
	colorDanger     = lipgloss.Color("#FF5252") // Red — errors
	colorMuted      = lipgloss.Color("#636363") // Gray — de-emphasized
	colorWhite      = lipgloss.Color("#EEEEEE") // Off-white — primary text
	colorSurface    = lipgloss.Color("#1E1E2E") // Dark surface — status bar bg
	colorSurfaceDim = lipgloss.Color("#181825") // Darkest surface — footer bg
)

// Selection indicator prepended to the active code row.
const selectionIndicator = "▎"

var (
	styleStatusBar = lipgloss.NewStyle().
			Background(colorSurface).
			Foreground(colorWhite).
			Bold(true).
			Padding(0, 1)

	styleStatusState = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleSelection = lipgloss.NewStyle().
			Foreground(colorAccent)

	styleCodeSelected = lipgloss.NewStyle().
				Foreground(colorWhite).
				Bold(true)

	styleCodeNormal = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleMessageOK = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleMessageErr = lipgloss.NewStyle().
			Foreground(colorDanger)

	styleFooter = lipgloss.NewStyle().
			Background(colorSurfaceDim).
			Foreground(colorMuted).
			Padding(0, 1)
)
