package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/veldtlang/pluginhost/config"
	"github.com/veldtlang/pluginhost/iface"
	"github.com/veldtlang/pluginhost/loader"
	"github.com/veldtlang/pluginhost/names"
	"github.com/veldtlang/pluginhost/registry"
	"github.com/veldtlang/pluginhost/session"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse packages, modules, and exported values interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("browse needs a terminal; use 'packages' for plain output")
		}
		p := tea.NewProgram(newBrowseModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browseState int

const (
	stateUnits browseState = iota
	stateModules
	stateExports
	stateInputArgs
	stateShowResult
)

type browseModel struct {
	err error

	env *session.Environment
	st  *config.Settings

	units   []*registry.Entry
	exports []exportInfo
	inputs  []textinput.Model

	unitSel   int
	moduleSel int
	exportSel int
	focusIdx  int

	result string
	state  browseState
}

type exportInfo struct {
	occ    string
	origin names.ModuleRef
	kind   iface.DeclKind
	sig    *iface.Signature
}

func newBrowseModel() *browseModel {
	return &browseModel{state: stateUnits}
}

type loadedMsg struct {
	err   error
	env   *session.Environment
	st    *config.Settings
	units []*registry.Entry
}

type exportsMsg struct {
	err     error
	exports []exportInfo
}

type valueMsg struct {
	err    error
	result string
}

func (m *browseModel) Init() tea.Cmd {
	return m.loadRegistry
}

func (m *browseModel) loadRegistry() tea.Msg {
	env, st, _, err := ensure(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{env: env, st: st, units: env.Packages.Units()}
}

func (m *browseModel) currentUnit() *registry.Entry {
	return m.units[m.unitSel]
}

func (m *browseModel) currentModule() string {
	return m.currentUnit().Modules[m.moduleSel].Name
}

// loadExports reads the selected module's interface and pairs each export
// with the declaration at its origin.
func (m *browseModel) loadExports() tea.Msg {
	ref := names.ModuleRef{Unit: m.currentUnit().Unit, Module: m.currentModule()}
	ifc, err := m.env.Interface(ref)
	if err != nil {
		return exportsMsg{err: err}
	}

	var out []exportInfo
	for _, exp := range ifc.Exports {
		info := exportInfo{occ: exp.Occ, origin: exp.Origin}
		if origin, err := m.env.Interface(exp.Origin); err == nil {
			if d, ok := origin.Decl(exp.Occ); ok {
				info.kind = d.Kind
				info.sig = d.Sig
			}
		}
		out = append(out, info)
	}
	return exportsMsg{exports: out}
}

// loadValue retrieves the selected export with its own declared type as
// the expectation, so the type gate always passes.
func (m *browseModel) loadValue() tea.Msg {
	ctx := context.Background()
	e := m.exports[m.exportSel]
	sym := names.Name{Module: &e.origin, Occ: e.occ}

	h, ok, err := loader.LoadValue(ctx, m.env, sym, e.sig)
	if err != nil {
		return valueMsg{err: err}
	}
	if !ok {
		return valueMsg{err: fmt.Errorf("declared type changed underneath the browser")}
	}

	if g := h.Global(); g != nil {
		return valueMsg{result: fmt.Sprintf("= %d", g.Get())}
	}

	args := make([]uint64, len(m.inputs))
	for i, input := range m.inputs {
		v, err := coreArg(strings.TrimSpace(input.Value()), e.sig.Params[i])
		if err != nil {
			return valueMsg{err: err}
		}
		args[i] = v
	}
	res, err := h.Func().Call(ctx, args...)
	if err != nil {
		return valueMsg{err: err}
	}
	return valueMsg{result: fmt.Sprintf("-> %v", res)}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.env != nil {
				m.env.Close(context.Background())
			}
			return m, tea.Quit

		case "up", "k":
			m.move(-1)

		case "down", "j":
			m.move(1)

		case "enter":
			return m.enter()

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			m.back()
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.env = msg.env
		m.st = msg.st
		m.units = msg.units

	case exportsMsg:
		if msg.err != nil {
			m.err = msg.err
			m.exports = nil
			m.state = stateShowResult
			return m, nil
		}
		m.exports = msg.exports
		m.exportSel = 0
		m.state = stateExports

	case valueMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
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

func (m *browseModel) move(delta int) {
	clamp := func(sel *int, n int) {
		next := *sel + delta
		if next >= 0 && next < n {
			*sel = next
		}
	}
	switch m.state {
	case stateUnits:
		clamp(&m.unitSel, len(m.units))
	case stateModules:
		clamp(&m.moduleSel, len(m.currentUnit().Modules))
	case stateExports:
		clamp(&m.exportSel, len(m.exports))
	}
}

func (m *browseModel) enter() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateUnits:
		if len(m.units) == 0 || len(m.currentUnit().Modules) == 0 {
			return m, nil
		}
		m.moduleSel = 0
		m.state = stateModules

	case stateModules:
		return m, m.loadExports

	case stateExports:
		if len(m.exports) == 0 {
			return m, nil
		}
		e := m.exports[m.exportSel]
		if e.sig == nil || e.kind != iface.DeclValue {
			m.err = fmt.Errorf("%s is not a loadable value", e.occ)
			m.state = stateShowResult
			return m, nil
		}
		if e.sig.Func && len(e.sig.Params) > 0 {
			m.prepareInputs(e)
			m.state = stateInputArgs
			return m, nil
		}
		m.inputs = nil
		return m, m.loadValue

	case stateInputArgs:
		return m, m.loadValue

	case stateShowResult:
		m.state = stateExports
		m.result = ""
		m.err = nil
	}
	return m, nil
}

func (m *browseModel) back() {
	switch m.state {
	case stateModules:
		m.state = stateUnits
	case stateExports:
		m.state = stateModules
	case stateInputArgs:
		m.state = stateExports
		m.inputs = nil
	case stateShowResult:
		m.state = stateExports
		m.result = ""
		m.err = nil
	}
}

func (m *browseModel) prepareInputs(e exportInfo) {
	m.inputs = make([]textinput.Model, len(e.sig.Params))
	for i, p := range e.sig.Params {
		ti := textinput.New()
		ti.Placeholder = iface.TypeString(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *browseModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.env == nil {
		return "Starting native toolchain session..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("veldt plugins"))
	b.WriteString(" ")
	b.WriteString(m.st.LibDir)
	b.WriteString("\n\n")

	switch m.state {
	case stateUnits:
		b.WriteString("Installed packages:\n\n")
		for i, e := range m.units {
			line := string(e.Unit)
			if !e.Exposed {
				line += "  (hidden)"
			}
			m.writeRow(&b, line, i == m.unitSel)
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter modules • q quit"))

	case stateModules:
		b.WriteString(fmt.Sprintf("Modules of %s:\n\n", nameStyle.Render(string(m.currentUnit().Unit))))
		for i, mod := range m.currentUnit().Modules {
			line := mod.Name
			if mod.Unit != "" {
				line += "  -> " + string(mod.Unit)
			}
			m.writeRow(&b, line, i == m.moduleSel)
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter exports • esc back • q quit"))

	case stateExports:
		b.WriteString(fmt.Sprintf("Exports of %s:\n\n", nameStyle.Render(m.currentModule())))
		if len(m.exports) == 0 {
			b.WriteString("  (none)\n")
		}
		for i, e := range m.exports {
			m.writeRow(&b, m.formatExport(e), i == m.exportSel)
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter load • esc back • q quit"))

	case stateInputArgs:
		e := m.exports[m.exportSel]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", nameStyle.Render(e.occ)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(iface.TypeString(e.sig.Params[i])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		title := m.currentModule()
		if len(m.exports) > 0 {
			title = m.exports[m.exportSel].occ
		}
		b.WriteString(fmt.Sprintf("%s:\n\n", nameStyle.Render(title)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *browseModel) writeRow(b *strings.Builder, line string, selected bool) {
	if selected {
		b.WriteString(selectedStyle.Render("> " + line))
	} else {
		b.WriteString("  " + line)
	}
	b.WriteString("\n")
}

func (m *browseModel) formatExport(e exportInfo) string {
	if e.sig == nil {
		return e.occ + "  " + helpStyle.Render("(no declaration)")
	}
	line := nameStyle.Render(e.occ) + " : " + typeStyle.Render(e.sig.String())
	if e.kind != iface.DeclValue {
		line += "  " + helpStyle.Render("("+string(e.kind)+")")
	}
	return line
}
