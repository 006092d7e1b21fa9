// Package wizard is the interactive `covlight init` flow for picking
// coverage threshold floors before the config file is written.
package wizard

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/covlight/covlight/internal/config"
)

type (
	wizardState int

	initWizardModel struct {
		state     wizardState
		metrics   []wizardMetric
		cursor    int
		confirmed bool
		aborted   bool
		exclude   []string
	}

	wizardMetric struct {
		label    string
		floor    float64
		enforced bool
	}
)

const (
	stateIntro wizardState = iota
	stateEdit
	stateConfirm
)

const defaultFloor = 80.0

// Run walks the user through threshold selection and returns the
// updated config. The boolean is false when the user cancelled.
func Run(cfg config.Config, stdout io.Writer, stdin io.Reader) (config.Config, bool, error) {
	model := newInitWizardModel(cfg)
	program := tea.NewProgram(model, tea.WithInput(stdin), tea.WithOutput(stdout))
	res, err := program.Run()
	if err != nil {
		return cfg, false, err
	}
	finalModel, ok := res.(*initWizardModel)
	if !ok {
		return cfg, false, fmt.Errorf("unexpected wizard state")
	}
	if finalModel.aborted || !finalModel.confirmed {
		return cfg, false, nil
	}
	return finalModel.apply(cfg), true, nil
}

func newInitWizardModel(cfg config.Config) *initWizardModel {
	metric := func(label string, floor *float64) wizardMetric {
		m := wizardMetric{label: label, floor: defaultFloor, enforced: true}
		if floor != nil {
			m.floor = *floor
		}
		return m
	}
	return &initWizardModel{
		state: stateIntro,
		metrics: []wizardMetric{
			metric("Lines", cfg.Thresholds.Lines),
			metric("Functions", cfg.Thresholds.Functions),
			metric("Branches", cfg.Thresholds.Branches),
			metric("Statements", cfg.Thresholds.Statements),
		},
		exclude: append([]string(nil), cfg.Exclude...),
	}
}

func (m *initWizardModel) Init() tea.Cmd {
	return nil
}

func (m *initWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			switch m.state {
			case stateIntro:
				m.state = stateEdit
			case stateEdit:
				m.state = stateConfirm
			case stateConfirm:
				m.confirmed = true
				return m, tea.Quit
			}
		case "esc":
			if m.state == stateConfirm {
				m.state = stateEdit
			}
		case "up":
			if m.state == stateEdit {
				m.moveCursor(-1)
			}
		case "down":
			if m.state == stateEdit {
				m.moveCursor(1)
			}
		case "left", "-":
			if m.state == stateEdit {
				m.adjustMetric(m.cursor, -5)
			}
		case "right", "+":
			if m.state == stateEdit {
				m.adjustMetric(m.cursor, 5)
			}
		case " ", "x":
			if m.state == stateEdit {
				m.metrics[m.cursor].enforced = !m.metrics[m.cursor].enforced
			}
		}
	}
	return m, nil
}

func (m *initWizardModel) View() string {
	switch m.state {
	case stateIntro:
		return m.viewIntro()
	case stateEdit:
		return m.viewEdit()
	case stateConfirm:
		return m.viewConfirm()
	default:
		return ""
	}
}

func (m *initWizardModel) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > len(m.metrics)-1 {
		m.cursor = len(m.metrics) - 1
	}
}

func (m *initWizardModel) adjustMetric(index int, delta float64) {
	if index < 0 || index >= len(m.metrics) {
		return
	}
	m.metrics[index].floor = clamp(m.metrics[index].floor+delta, 0, 100)
	m.metrics[index].enforced = true
}

func (m *initWizardModel) viewIntro() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\ncovlight init wizard\n\n")
	fmt.Fprintf(&b, "Pick the coverage floors a `covlight check` must meet.\n\n")
	fmt.Fprintf(&b, "Press Enter to continue, or Ctrl+C to cancel. Default floor is %.0f%%.\n", defaultFloor)
	return b.String()
}

func (m *initWizardModel) viewEdit() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReview and adjust thresholds\n\n")
	fmt.Fprintf(&b, "Use ↑/↓ to move, ←/→ or +/- to change values, space to toggle.\n\n")
	for idx, metric := range m.metrics {
		prefix := "  "
		if m.cursor == idx {
			prefix = "> "
		}
		state := "off"
		if metric.enforced {
			state = fmt.Sprintf("%.0f%%", metric.floor)
		}
		fmt.Fprintf(&b, "%s%-10s %s\n", prefix, metric.label, state)
	}
	fmt.Fprintf(&b, "\nEnter to continue, q to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewConfirm() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReady to write configuration\n\n")
	for _, metric := range m.metrics {
		if metric.enforced {
			fmt.Fprintf(&b, "  %s: %.0f%%\n", metric.label, metric.floor)
		}
	}
	if len(m.exclude) > 0 {
		fmt.Fprintf(&b, "\nConfigured exclusions:\n")
		for _, pattern := range m.exclude {
			fmt.Fprintf(&b, "  - %s\n", pattern)
		}
	} else {
		fmt.Fprintf(&b, "\nNo exclusions configured.\n")
	}
	fmt.Fprintf(&b, "\nPress Enter to save, Esc to go back, q to cancel.\n")
	return b.String()
}

func (m *initWizardModel) apply(cfg config.Config) config.Config {
	floor := func(metric wizardMetric) *float64 {
		if !metric.enforced {
			return nil
		}
		v := metric.floor
		return &v
	}
	cfg.Thresholds.Lines = floor(m.metrics[0])
	cfg.Thresholds.Functions = floor(m.metrics[1])
	cfg.Thresholds.Branches = floor(m.metrics[2])
	cfg.Thresholds.Statements = floor(m.metrics[3])
	cfg.Exclude = append([]string(nil), m.exclude...)
	return cfg
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
