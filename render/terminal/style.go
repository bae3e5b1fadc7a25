package terminal

import "github.com/charmbracelet/lipgloss"

var (
	// Record colors: blue for user, emerald for assistant, slate for
	// agent-authored records.
	colorUser      = lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#60a5fa"}
	colorAssistant = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"}
	colorAgent     = lipgloss.AdaptiveColor{Light: "#64748b", Dark: "#94a3b8"}

	colorBright = lipgloss.AdaptiveColor{Light: "#0f172a", Dark: "#f1f5f9"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#94a3b8", Dark: "#64748b"}
	colorTool   = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"}
	colorSpawn  = lipgloss.AdaptiveColor{Light: "#c2410c", Dark: "#fb923c"}
	colorError  = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
	colorCode   = lipgloss.AdaptiveColor{Light: "#be185d", Dark: "#f472b6"}
)

var (
	styleUserBadge      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	styleAssistantBadge = lipgloss.NewStyle().Foreground(colorAssistant).Bold(true)
	styleAgentBadge     = lipgloss.NewStyle().Foreground(colorAgent).Bold(true)

	styleTitle = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleMeta  = lipgloss.NewStyle().Foreground(colorDim)

	styleAdded   = lipgloss.NewStyle().Foreground(colorAssistant)
	styleRemoved = lipgloss.NewStyle().Foreground(colorError)
	styleChanged = lipgloss.NewStyle().Foreground(colorUser)

	styleToolName   = lipgloss.NewStyle().Foreground(colorTool).Bold(true)
	styleToolDetail = lipgloss.NewStyle().Foreground(colorDim)
	styleThinking   = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	styleError      = lipgloss.NewStyle().Foreground(colorError)

	styleSpawn      = lipgloss.NewStyle().Foreground(colorSpawn)
	styleSpawnFocus = lipgloss.NewStyle().Foreground(colorSpawn).Bold(true).Reverse(true)
	styleNest       = lipgloss.NewStyle().Foreground(colorSpawn)

	styleHeading = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleCode    = lipgloss.NewStyle().Foreground(colorCode)
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleItalic  = lipgloss.NewStyle().Italic(true)
	styleLink    = lipgloss.NewStyle().Foreground(colorUser).Underline(true)

	styleSeparator = lipgloss.NewStyle().Foreground(colorDim)
)
