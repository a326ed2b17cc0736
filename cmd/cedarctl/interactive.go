package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/cedar-wasm/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	fieldPrincipal = iota
	fieldAction
	fieldResource
	fieldContext
	fieldCount
)

var fieldNames = [fieldCount]string{"principal", "action", "resource", "context"}

type interactiveModel struct {
	err      error
	engine   *host.Engine
	resp     *host.Response
	opts     engineOptions
	scenario string
	summary  string
	inputs   []textinput.Model
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateLoading modelState = iota
	stateInput
	stateShowResult
)

func newInteractiveModel(opts engineOptions, scenario string) *interactiveModel {
	m := &interactiveModel{
		opts:     opts,
		scenario: scenario,
		state:    stateLoading,
		inputs:   make([]textinput.Model, fieldCount),
	}
	placeholders := [fieldCount]string{`User::"alice"`, `Action::"view"`, `Photo::"vacation.jpg"`, `{}`}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = fmt.Sprintf("%-10s ", fieldNames[i]+":")
		ti.Placeholder = placeholders[i]
		ti.Width = 60
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	return m
}

type loadedMsg struct {
	err     error
	engine  *host.Engine
	summary string
}

type evalResultMsg struct {
	err  error
	resp *host.Response
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	ctx := context.Background()

	eng, err := openEngine(ctx, m.opts)
	if err != nil {
		return loadedMsg{err: err}
	}
	if m.scenario == "" {
		return loadedMsg{engine: eng, summary: "no scenario loaded"}
	}

	sc, err := LoadScenario(m.scenario)
	if err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}
	if err := eng.SetEntitiesFromJSON(ctx, sc.Entities); err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}
	if err := eng.SetPolicies(ctx, sc.Policies); err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{engine: eng, summary: m.scenario}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.state == stateShowResult && msg.String() == "esc" {
				m.state = stateInput
				m.resp = nil
				m.err = nil
				return m, nil
			}
			if m.engine != nil {
				m.engine.Close(context.Background())
			}
			return m, tea.Quit

		case "tab", "down":
			if m.state == stateInput {
				m.moveFocus(1)
			}
			return m, nil

		case "shift+tab", "up":
			if m.state == stateInput {
				m.moveFocus(-1)
			}
			return m, nil

		case "enter":
			switch m.state {
			case stateInput:
				return m, m.evaluate
			case stateShowResult:
				m.state = stateInput
				m.resp = nil
				m.err = nil
				return m, nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.engine = msg.engine
		m.summary = msg.summary
		m.state = stateInput

	case evalResultMsg:
		m.resp = msg.resp
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInput {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) moveFocus(delta int) {
	m.inputs[m.focusIdx].Blur()
	m.focusIdx = (m.focusIdx + delta + fieldCount) % fieldCount
	m.inputs[m.focusIdx].Focus()
}

// value returns the field text, falling back to its placeholder.
func (m *interactiveModel) value(field int) string {
	if v := strings.TrimSpace(m.inputs[field].Value()); v != "" {
		return v
	}
	return m.inputs[field].Placeholder
}

func (m *interactiveModel) evaluate() tea.Msg {
	if m.engine == nil {
		return evalResultMsg{err: fmt.Errorf("engine not loaded")}
	}
	resp, err := m.engine.IsAuthorizedJSON(context.Background(), host.EvalRequest{
		Principal: m.value(fieldPrincipal),
		Action:    m.value(fieldAction),
		Resource:  m.value(fieldResource),
		Context:   m.value(fieldContext),
	})
	return evalResultMsg{resp: resp, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}
	if m.state == stateLoading {
		return "Loading guest..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Cedar"))
	b.WriteString(" ")
	b.WriteString(m.summary)
	b.WriteString("\n\n")

	for _, input := range m.inputs {
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.state {
	case stateInput:
		b.WriteString(helpStyle.Render("tab next field • enter evaluate • esc quit"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		} else {
			b.WriteString(m.formatResponse())
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter edit • esc back • ctrl+c quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatResponse() string {
	var b strings.Builder
	decision := denyStyle.Render(m.resp.Decision)
	if m.resp.Decision == "Allow" {
		decision = allowStyle.Render(m.resp.Decision)
	}
	b.WriteString(labelStyle.Render("decision: "))
	b.WriteString(decision)
	b.WriteString("\n")

	reasons := "none"
	if len(m.resp.Diagnostics.Reason) > 0 {
		reasons = strings.Join(m.resp.Diagnostics.Reason, ", ")
	}
	b.WriteString(labelStyle.Render("policies: "))
	b.WriteString(reasons)
	b.WriteString("\n")

	for _, e := range m.resp.Diagnostics.Errors {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%s: %s", e.PolicyID, e.Message)))
		b.WriteString("\n")
	}
	return b.String()
}

func runInteractive(opts engineOptions, scenario string) error {
	p := tea.NewProgram(newInteractiveModel(opts, scenario), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
