package viz

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	subtle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	activeName  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	activeValue = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Bold(true)
	idleName    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	idleValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)

	metricLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	metricValue = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)

	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)
)

func keyHints(pairs ...string) string {
	s := ""
	for i := 0; i+1 < len(pairs); i += 2 {
		s += keyStyle.Render(pairs[i]) + subtle.Render(" "+pairs[i+1]+"  ")
	}
	return s
}
