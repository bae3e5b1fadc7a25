// Package tui is an interactive browser for the session catalog. Opening a
// session renders its transcript; each subagent spawn can be expanded in
// place, with one fetch.Machine per expanded subagent tracking its load.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/fetch"
	"github.com/sonnes/sessionview/render/terminal"
	"github.com/sonnes/sessionview/subagent"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// Backend is where the browser reads from: the stores directly, or a
// client for a running server.
type Backend interface {
	ListSessions(ctx context.Context) ([]core.Session, error)
	Transcript(ctx context.Context, sessionID string) (*core.Transcript, error)
	SubagentRecords(ctx context.Context, sessionID, agentID string) (*core.SubagentResponse, error)
}

// Config configures Run.
type Config struct {
	Backend Backend
	// Match selects the tool calls that spawn subagents. Nil uses
	// subagent.DefaultTools.
	Match subagent.Matcher
	// Timeout bounds each request. Zero means no limit.
	Timeout time.Duration
	// Watch, when set, blocks until ctx is done and calls fn whenever the
	// catalog may have changed.
	Watch func(ctx context.Context, fn func()) error
}

// Run starts the browser on the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Backend == nil {
		return errors.New("tui: no backend")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	m := newModel(ctx, cfg, func(msg tea.Msg) { p.Send(msg) })
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if cfg.Watch != nil {
		go func() {
			if err := cfg.Watch(ctx, func() { p.Send(reloadMsg{}) }); err != nil {
				log.Warn("watch stopped", "error", err)
			}
		}()
	}

	final, err := p.Run()
	if fm, ok := final.(model); ok {
		fm.collapseAll()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type view int

const (
	viewSessions view = iota
	viewTranscript
)

type sessionsMsg struct {
	sessions []core.Session
	err      error
}

type transcriptMsg struct {
	sessionID  string
	transcript *core.Transcript
	err        error
}

// subagentMsg wakes the model after a Machine changed state. The state
// itself is read from the Machine, since sends may arrive out of order.
type subagentMsg struct {
	path    string
	machine *fetch.Machine
}

type reloadMsg struct{}

type expansion struct {
	path    subagent.Path
	machine *fetch.Machine
}

type model struct {
	ctx      context.Context
	backend  Backend
	resolver *subagent.Resolver
	match    subagent.Matcher
	timeout  time.Duration
	send     func(tea.Msg)

	width  int
	height int
	view   view

	sessions list.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	showHelp bool

	loadingSessions   bool
	loadingTranscript bool
	err               error

	sessionID  string
	transcript *core.Transcript
	expanded   map[string]*expansion // by path string
	anchors    []terminal.Anchor
	focus      subagent.Path
}

func newModel(ctx context.Context, cfg Config, send func(tea.Msg)) model {
	spin := spinner.New()
	spin.Spinner = spinner.Line
	spin.Style = dimStyle

	match := cfg.Match
	if match == nil {
		match = subagent.ToolMatcher(subagent.DefaultTools...)
	}

	m := model{
		ctx:             ctx,
		backend:         cfg.Backend,
		resolver:        subagent.New(cfg.Backend),
		match:           match,
		timeout:         cfg.Timeout,
		send:            send,
		width:           defaultWidth,
		height:          defaultHeight,
		sessions:        newListModel(),
		viewport:        viewport.New(defaultWidth, defaultHeight),
		spinner:         spin,
		help:            help.New(),
		keys:            newKeyMap(),
		loadingSessions: true,
		expanded:        make(map[string]*expansion),
	}
	m.resize()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadSessions())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.render()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case sessionsMsg:
		m.loadingSessions = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		cmd := m.sessions.SetItems(buildSessionItems(msg.sessions))
		return m, cmd
	case transcriptMsg:
		if m.view != viewTranscript || msg.sessionID != m.sessionID {
			log.Debug("dropping stale transcript", "session_id", msg.sessionID)
			return m, nil
		}
		m.loadingTranscript = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.transcript = msg.transcript
		m.render()
		return m, nil
	case subagentMsg:
		if e, ok := m.expanded[msg.path]; ok && e.machine == msg.machine {
			m.render()
		}
		return m, nil
	case reloadMsg:
		cmd := m.reload()
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.view == viewSessions {
		var cmd tea.Cmd
		m.sessions, cmd = m.sessions.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtering := m.view == viewSessions && m.sessions.FilterState() == list.Filtering
	if !filtering {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.resize()
			return m, nil
		}
	}

	if m.view == viewTranscript {
		var cmd tea.Cmd
		switch {
		case key.Matches(msg, m.keys.Back):
			m.closeTranscript()
		case key.Matches(msg, m.keys.Next):
			m.moveFocus(1)
		case key.Matches(msg, m.keys.Prev):
			m.moveFocus(-1)
		case key.Matches(msg, m.keys.Open):
			m.toggle()
		case key.Matches(msg, m.keys.Refresh):
			cmd = m.refresh()
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd
	}

	if !filtering {
		switch {
		case key.Matches(msg, m.keys.Open):
			if item, ok := m.sessions.SelectedItem().(sessionItem); ok {
				cmd := m.open(item.session.ID)
				return m, cmd
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.loadingSessions = true
			return m, m.loadSessions()
		}
	}
	var cmd tea.Cmd
	m.sessions, cmd = m.sessions.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var body string
	switch {
	case m.view == viewSessions:
		body = m.sessions.View()
	case m.transcript == nil && m.err == nil:
		body = dimStyle.Render(m.spinner.View() + " loading " + m.sessionID)
	case m.transcript == nil:
		body = ""
	default:
		body = m.viewport.View()
	}
	return strings.Join([]string{m.header(), body, m.footer()}, "\n")
}

func (m model) header() string {
	parts := []string{headerStyle.Render("sessions")}
	if m.view == viewTranscript {
		parts = append(parts, headerStyle.Render(m.sessionID))
	}
	line := strings.Join(parts, dimStyle.Render(" › "))
	if n := m.expandedCount(); n > 0 {
		line += dimStyle.Render(fmt.Sprintf("  %d expanded", n))
	}
	if m.busy() {
		line += "  " + m.spinner.View()
	}
	return ansi.Truncate(line, m.width, "…")
}

func (m model) footer() string {
	if m.err != nil {
		return errStyle.Render(ansi.Truncate("error: "+firstLine(m.err.Error()), m.width, "…"))
	}
	if m.showHelp {
		return footerStyle.Render(m.help.FullHelpView(m.keys.FullHelp()))
	}
	return footerStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *model) resize() {
	m.help.Width = m.width
	h := m.height - lipgloss.Height(m.header()) - lipgloss.Height(m.footer())
	h = max(h, 1)
	m.sessions.SetSize(m.width, h)
	m.viewport.Width = m.width
	m.viewport.Height = h
}

func (m model) busy() bool {
	if m.loadingSessions || m.loadingTranscript {
		return true
	}
	for _, e := range m.expanded {
		if e.machine.State().Loading() {
			return true
		}
	}
	return false
}

func (m model) expandedCount() int {
	return len(m.expanded)
}

func (m model) requestContext() (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(m.ctx, m.timeout)
	}
	return context.WithCancel(m.ctx)
}

func (m model) loadSessions() tea.Cmd {
	ctx, cancel := m.requestContext()
	backend := m.backend
	return func() tea.Msg {
		defer cancel()
		sessions, err := backend.ListSessions(ctx)
		if err != nil {
			err = fmt.Errorf("list sessions: %w", err)
		}
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func (m model) loadTranscript(sessionID string) tea.Cmd {
	ctx, cancel := m.requestContext()
	backend := m.backend
	return func() tea.Msg {
		defer cancel()
		t, err := backend.Transcript(ctx, sessionID)
		return transcriptMsg{sessionID: sessionID, transcript: t, err: err}
	}
}

func (m *model) open(sessionID string) tea.Cmd {
	log.Debug("open session", "session_id", sessionID)
	m.view = viewTranscript
	m.keys.setView(viewTranscript)
	m.sessionID = sessionID
	m.transcript = nil
	m.anchors = nil
	m.focus = nil
	m.err = nil
	m.loadingTranscript = true
	m.viewport.SetContent("")
	m.viewport.GotoTop()
	return m.loadTranscript(sessionID)
}

func (m *model) closeTranscript() {
	m.collapseAll()
	m.view = viewSessions
	m.keys.setView(viewSessions)
	m.sessionID = ""
	m.transcript = nil
	m.anchors = nil
	m.focus = nil
	m.err = nil
	m.loadingTranscript = false
}

// refresh refetches the focused subagent when it is expanded, and the whole
// transcript otherwise.
func (m *model) refresh() tea.Cmd {
	if e, ok := m.expanded[m.focus.String()]; ok && m.focus != nil {
		e.machine.Refetch()
		return nil
	}
	m.loadingTranscript = true
	return m.loadTranscript(m.sessionID)
}

// reload refreshes everything on screen after the catalog changed.
func (m *model) reload() tea.Cmd {
	m.loadingSessions = true
	cmds := []tea.Cmd{m.loadSessions()}
	if m.view == viewTranscript && m.sessionID != "" {
		m.loadingTranscript = true
		cmds = append(cmds, m.loadTranscript(m.sessionID))
		for _, e := range m.expanded {
			e.machine.Refetch()
		}
	}
	return tea.Batch(cmds...)
}

// moveFocus steps through the spawn lines in output order, wrapping around.
func (m *model) moveFocus(delta int) {
	n := len(m.anchors)
	if n == 0 {
		return
	}
	i := m.focusIndex()
	switch {
	case i < 0 && delta < 0:
		i = n - 1
	case i < 0:
		i = 0
	default:
		i = ((i+delta)%n + n) % n
	}
	m.focus = m.anchors[i].Path
	m.render()
	if i := m.focusIndex(); i >= 0 {
		m.scrollTo(m.anchors[i].Line)
	}
}

func (m model) focusIndex() int {
	if m.focus == nil {
		return -1
	}
	key := m.focus.String()
	for i, a := range m.anchors {
		if a.Path.String() == key {
			return i
		}
	}
	return -1
}

// scrollTo brings line into view, a third of the way down when it has to
// move.
func (m *model) scrollTo(line int) {
	top := m.viewport.YOffset
	if line >= top && line < top+m.viewport.Height {
		return
	}
	m.viewport.SetYOffset(max(line-m.viewport.Height/3, 0))
}

// toggle expands the focused subagent, or collapses it with everything
// expanded beneath it.
func (m *model) toggle() {
	if m.focus == nil || m.sessionID == "" {
		return
	}
	key := m.focus.String()
	if _, ok := m.expanded[key]; ok {
		m.collapse(key)
	} else {
		parent := m.focus[:len(m.focus)-1]
		if _, err := parent.Child(m.focus.Leaf()); err != nil {
			m.err = err
			return
		}
		m.expand(m.focus)
	}
	m.render()
}

func (m *model) expand(path subagent.Path) {
	key := path.String()
	send := m.send
	var machine *fetch.Machine
	machine = fetch.New(m.resolver,
		fetch.WithTimeout(m.timeout),
		fetch.WithOnChange(func(fetch.State) {
			// Send blocks until the program reads the message, which may be
			// inside Update on this very goroutine.
			go send(subagentMsg{path: key, machine: machine})
		}),
	)
	m.expanded[key] = &expansion{path: append(subagent.Path{}, path...), machine: machine}
	machine.Observe(m.sessionID, path.Leaf())
}

func (m *model) collapse(key string) {
	for k, e := range m.expanded {
		if k == key || strings.HasPrefix(k, key+"/") {
			e.machine.Close()
			delete(m.expanded, k)
		}
	}
}

func (m model) collapseAll() {
	for k, e := range m.expanded {
		e.machine.Close()
		delete(m.expanded, k)
	}
}

// render redraws the transcript into the viewport and records where each
// spawn line landed.
func (m *model) render() {
	if m.transcript == nil {
		return
	}
	r := terminal.Renderer{
		Width:    m.viewport.Width,
		Full:     true,
		Match:    m.match,
		Subagent: expansionHook(m.expanded),
		Focus:    m.focus,
	}
	var b strings.Builder
	anchors, err := r.RenderAnchors(&b, m.transcript)
	if err != nil {
		m.err = err
		return
	}
	m.anchors = anchors
	m.viewport.SetContent(strings.TrimRight(b.String(), "\n"))
}

// expansionHook shows each expanded subagent according to its Machine. A
// refetch keeps the previous records on screen until the new ones arrive.
func expansionHook(expanded map[string]*expansion) func(subagent.Path, subagent.Spawn) *terminal.Expansion {
	return func(parent subagent.Path, sp subagent.Spawn) *terminal.Expansion {
		key := append(append(subagent.Path{}, parent...), sp.AgentID).String()
		e, ok := expanded[key]
		if !ok {
			return nil
		}
		st := e.machine.State()
		switch {
		case st.Subagent != nil:
			return &terminal.Expansion{Type: st.Subagent.Type, Records: st.Subagent.Records, Errors: st.Subagent.Errors}
		case st.Status == fetch.Failure:
			return &terminal.Expansion{Err: st.Err}
		case st.Loading():
			return &terminal.Expansion{Note: "loading…"}
		}
		return nil
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
