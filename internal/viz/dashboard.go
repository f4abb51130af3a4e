package viz

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/episim/internal/epi"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/metrics"
)

type slider struct {
	name      string
	step      float64
	precision int
	get       func(*experiment.Params) *float64
}

// Ranges follow the dashboard: every rate lives in [0, 1].
var sliders = []slider{
	{"transmission", 0.1, 2, func(p *experiment.Params) *float64 { return &p.Beta }},
	{"recovery", 0.1, 2, func(p *experiment.Params) *float64 { return &p.Gamma }},
	{"vaccinated", 0.0001, 4, func(p *experiment.Params) *float64 { return &p.Proportion }},
	{"efficacy", 0.1, 2, func(p *experiment.Params) *float64 { return &p.Efficacy }},
}

// resultMsg carries the comparison computed for request seq.
type resultMsg struct {
	seq int
	cmp *experiment.Comparison
	err error
}

type Model struct {
	exp      *experiment.Experiment
	params   experiment.Params
	clusters []epi.SegmentID
	cluster  int // 0 selects every cluster
	cursor   int
	editing  bool
	editBuf  string

	// seq numbers recompute requests; only the latest one is displayed.
	seq int

	cmp           *experiment.Comparison
	err           error
	width, height int
}

func NewModel(exp *experiment.Experiment) Model {
	m := Model{exp: exp, width: 100, height: 30}
	m.reset()
	if t := exp.Table(); t != nil {
		m.clusters = t.Clusters()
	}
	return m
}

func (m *Model) reset() {
	m.params = m.exp.Params()
	m.cluster = 0
}

func (m Model) Init() tea.Cmd { return m.recompute() }

func (m Model) recompute() tea.Cmd {
	p := m.params
	p.Segments = m.selected()
	exp, seq := m.exp, m.seq
	return func() tea.Msg {
		cmp, err := exp.Compare(context.Background(), p)
		return resultMsg{seq: seq, cmp: cmp, err: err}
	}
}

// refresh issues a new request, superseding any still in flight.
func (m Model) refresh() (Model, tea.Cmd) {
	m.seq++
	cmd := m.recompute()
	return m, cmd
}

func (m Model) selected() []epi.SegmentID {
	if m.cluster == 0 || m.cluster > len(m.clusters) {
		return m.params.Segments
	}
	return []epi.SegmentID{m.clusters[m.cluster-1]}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.editKey(msg)
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case resultMsg:
		if msg.seq != m.seq {
			break
		}
		m.err = msg.err
		if msg.err == nil {
			m.cmp = msg.cmp
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(sliders)-1 {
			m.cursor++
		}
	case "left", "h":
		m.nudge(-1)
		return m.refresh()
	case "right", "l":
		m.nudge(1)
		return m.refresh()
	case "tab":
		m.cluster = (m.cluster + 1) % (len(m.clusters) + 1)
		return m.refresh()
	case "r":
		m.reset()
		return m.refresh()
	case "enter", " ":
		s := sliders[m.cursor]
		m.editing = true
		m.editBuf = strconv.FormatFloat(*s.get(&m.params), 'f', s.precision, 64)
	}
	return m, nil
}

func (m Model) editKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.editing = false
		v, err := strconv.ParseFloat(m.editBuf, 64)
		m.editBuf = ""
		if err != nil {
			m.err = fmt.Errorf("not a number: %w", err)
			return m, nil
		}
		*sliders[m.cursor].get(&m.params) = v
		return m.refresh()
	case "esc":
		m.editing, m.editBuf = false, ""
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	default:
		if s := msg.String(); len(s) == 1 && (s[0] >= '0' && s[0] <= '9' || s[0] == '.') {
			m.editBuf += s
		}
	}
	return m, nil
}

// nudge moves the selected slider one step, snapping to the step grid and
// staying inside [0, 1].
func (m *Model) nudge(dir float64) {
	s := sliders[m.cursor]
	v := s.get(&m.params)
	scale := math.Pow(10, float64(s.precision))
	next := math.Round((*v+dir*s.step)*scale) / scale
	*v = math.Max(0, math.Min(1, next))
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("EPISIM") + "  " + subtle.Render("vaccine deployment strategy") + "\n\n")

	var left strings.Builder
	for i, s := range sliders {
		val := strconv.FormatFloat(*s.get(&m.params), 'f', s.precision, 64)
		if m.editing && i == m.cursor {
			val = m.editBuf + "_"
		}
		if i == m.cursor {
			left.WriteString(cursorStyle.Render("▸ ") + activeName.Render(fmt.Sprintf("%-13s", s.name)) + activeValue.Render(fmt.Sprintf("%8s", val)) + "\n")
		} else {
			left.WriteString("  " + idleName.Render(fmt.Sprintf("%-13s", s.name)) + idleValue.Render(fmt.Sprintf("%8s", val)) + "\n")
		}
	}
	left.WriteString("\n" + metricLabel.Render("cluster  ") + metricValue.Render(m.clusterLabel()) + "\n")
	left.WriteString(metricLabel.Render("R0       ") + metricValue.Render(fmt.Sprintf("%.2f", m.params.BasicReproduction())) +
		metricLabel.Render("  Reff ") + metricValue.Render(fmt.Sprintf("%.2f", m.params.EffectiveReproduction())) + "\n")
	if m.cmp != nil {
		before, after := m.cmp.Summaries()
		left.WriteString("\n" + summaryLines("before", before) + summaryLines("after", after))
	}

	chart := ""
	if m.cmp != nil {
		w := m.width - 50
		if w < 30 {
			w = 30
		}
		chart = RenderComparison(m.cmp.Before, m.cmp.After, w, max(8, m.height-14))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panel.Render(left.String()), " ", chart))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString("  " + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("  " + keyHints("j/k", "select", "h/l", "adjust", "enter", "type", "tab", "cluster", "r", "reset", "q", "quit") + "\n")
	return b.String()
}

func (m Model) clusterLabel() string {
	segs := m.selected()
	if len(segs) == 0 {
		return "all"
	}
	labels := make([]string, len(segs))
	for i, s := range segs {
		labels[i] = string(s)
	}
	return strings.Join(labels, ",")
}

func summaryLines(label string, s metrics.Summary) string {
	return metricLabel.Render(fmt.Sprintf("%-7s peak ", label)) +
		metricValue.Render(fmt.Sprintf("%8.1f", s.PeakInfected)) +
		metricLabel.Render(" @ day ") + metricValue.Render(strconv.Itoa(s.PeakStep)) + "\n"
}

func Run(exp *experiment.Experiment) error {
	_, err := tea.NewProgram(NewModel(exp), tea.WithAltScreen()).Run()
	return err
}
