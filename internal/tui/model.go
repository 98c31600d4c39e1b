// Package tui hosts a chat room session in the terminal.
package tui

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/chatsession"
	"github.com/vovakirdan/roomchat/internal/render"
)

const (
	headerLines   = 1
	inputLines    = 3
	footerLines   = 1
	maxNoticeRows = 3
	minViewHeight = 3
)

// Client fetches room history and submits messages.
type Client interface {
	chatsession.MessageSource
	Send(ctx context.Context, roomID, text string) error
}

// Options configures the terminal host.
type Options struct {
	RoomID   string
	RoomName string
	Username string
	Session  chatsession.Options
}

type taskMsg func()

// Dispatcher posts controller tasks into a running program.
type Dispatcher struct {
	mu   sync.RWMutex
	prog *tea.Program
}

// Attach binds the dispatcher to p. Tasks posted before Attach are dropped.
func (d *Dispatcher) Attach(p *tea.Program) {
	d.mu.Lock()
	d.prog = p
	d.mu.Unlock()
}

// Post delivers task to the program's update loop. It must not be called
// from inside Update.
func (d *Dispatcher) Post(task func()) {
	d.mu.RLock()
	p := d.prog
	d.mu.RUnlock()
	if p != nil {
		p.Send(taskMsg(task))
	}
}

type notice struct {
	text    string
	removed bool
	owner   *Model
}

func (n *notice) Remove() {
	if n.removed {
		return
	}
	n.removed = true
	n.owner.dropNotice(n)
}

// Model is the bubbletea model of one room.
type Model struct {
	ctx     context.Context
	ctrl    *chatsession.Controller
	refresh func()
	client  Client
	log     *zerolog.Logger
	opts    Options
	styles  styles

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	entries  []chatsession.Entry
	empty    bool
	dirty    bool
	busy     bool
	disabled bool
	focused  bool
	notices  []*notice
	width    int
	height   int
}

// New creates the model and its session controller. Tasks are delivered
// through d, which must feed them back into Update.
func New(ctx context.Context, client Client, d chatsession.Dispatcher, logger *zerolog.Logger, opts Options) *Model {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a message..."
	input.CharLimit = 4000
	input.Focus()

	st := newStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.spinner

	m := &Model{
		ctx:      ctx,
		client:   client,
		log:      logger,
		opts:     opts,
		styles:   st,
		viewport: viewport.New(80, 20),
		input:    input,
		spinner:  sp,
		focused:  true,
	}

	page := chatsession.Page{
		RoomID:     opts.RoomID,
		Messages:   (*panel)(m),
		Input:      (*inputView)(m),
		Form:       (*form)(m),
		Indicator:  (*indicator)(m),
		Notices:    (*noticeArea)(m),
		Visibility: (*visibility)(m),
	}
	m.ctrl = chatsession.New(page, client, d, logger, opts.Session)
	m.refresh = m.ctrl.RefreshAction()
	return m
}

func (m *Model) Init() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		func() tea.Msg {
			ctrl.Start(ctx)
			return nil
		},
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case taskMsg:
		msg()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.dirty = true
		m.resize()
	case tea.FocusMsg:
		m.focused = true
		m.ctrl.HandleVisibilityChange()
	case tea.BlurMsg:
		m.focused = false
		m.ctrl.HandleVisibilityChange()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
		if !m.disabled {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	default:
		if !m.disabled {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.sync()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true
	case "ctrl+r":
		m.ctrl.HandleRefreshClick()
	case "f5":
		m.refresh()
	case "esc":
		if len(m.notices) > 0 {
			m.notices[0].Remove()
		}
	case "enter":
		m.ctrl.HandleKeyDown(chatsession.KeyEnter, false)
	case "alt+enter":
		// A single-line input has no newline to insert.
		m.ctrl.HandleKeyDown(chatsession.KeyEnter, true)
	case "pgup":
		m.sync()
		m.viewport.ViewUp()
	case "pgdown":
		m.sync()
		m.viewport.ViewDown()
	case "up":
		m.sync()
		m.viewport.LineUp(1)
	case "down":
		m.sync()
		m.viewport.LineDown(1)
	default:
		return nil, false
	}
	m.sync()
	return nil, true
}

func (m *Model) View() string {
	m.sync()

	title := m.styles.title.Render("# " + sanitize(m.opts.RoomName))
	if m.busy {
		title += " " + m.spinner.View()
	}
	if m.opts.Username != "" {
		title += m.styles.muted.Render("  signed in as " + sanitize(m.opts.Username))
	}

	parts := []string{title}
	for _, n := range m.visibleNotices() {
		parts = append(parts, m.styles.notice.Render("! "+n.text+"  (esc to dismiss)"))
	}
	parts = append(parts, m.viewport.View())

	inputView := m.input.View()
	if m.disabled {
		inputView = m.styles.muted.Render("sending... ") + inputView
	}
	parts = append(parts, m.styles.inputPanel.Width(m.contentWidth()).Render(inputView))
	parts = append(parts, m.styles.muted.Render("enter send · ctrl+r/f5 refresh · pgup/pgdn scroll · esc dismiss · ctrl+c quit"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) visibleNotices() []*notice {
	if len(m.notices) > maxNoticeRows {
		return m.notices[:maxNoticeRows]
	}
	return m.notices
}

func (m *Model) dropNotice(n *notice) {
	for i, cur := range m.notices {
		if cur == n {
			m.notices = append(m.notices[:i], m.notices[i+1:]...)
			break
		}
	}
	m.resize()
}

func (m *Model) contentWidth() int {
	if m.width <= 2 {
		return 78
	}
	return m.width - 2
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.viewport.Width = m.width
	h := m.height - headerLines - inputLines - footerLines - len(m.visibleNotices())
	if h < minViewHeight {
		h = minViewHeight
	}
	m.viewport.Height = h
	m.input.Width = m.contentWidth() - len(m.input.Prompt) - 2
	m.dirty = true
}

// sync re-renders the message rows into the viewport when they changed.
func (m *Model) sync() {
	if !m.dirty {
		return
	}
	m.dirty = false
	top := m.viewport.YOffset
	m.viewport.SetContent(m.renderRows())
	m.viewport.SetYOffset(top)
}

func (m *Model) renderRows() string {
	width := m.viewport.Width
	if m.empty {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, m.styles.muted.Render(render.EmptyStateText))
	}

	rows := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		rows = append(rows, m.renderEntry(e, width))
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderEntry(e chatsession.Entry, width int) string {
	bubble := width * 3 / 4
	if bubble < 10 {
		bubble = width
	}
	stamp := m.styles.muted.Render(e.Time)
	content := sanitize(e.Content)

	if e.Own {
		body := m.styles.own.Width(bubble).Align(lipgloss.Right).Render(content)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, body, stamp))
	}
	sender := m.styles.sender.Render(sanitize(e.Sender))
	body := m.styles.other.Width(bubble).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, sender, body, stamp)
}

// sanitize strips terminal control sequences from untrusted text. Newlines
// are kept and tabs become spaces.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}
