package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/roomchat/internal/chatsession"
)

// The view adapters below are only touched from Update.

type panel Model

func (p *panel) Clear() {
	p.entries = nil
	p.empty = false
	p.dirty = true
}

func (p *panel) Append(e chatsession.Entry) {
	p.entries = append(p.entries, e)
	p.dirty = true
}

func (p *panel) ShowEmpty() {
	p.empty = true
	p.dirty = true
}

func (p *panel) ScrollTop() int {
	(*Model)(p).sync()
	return p.viewport.YOffset
}

func (p *panel) ScrollHeight() int {
	(*Model)(p).sync()
	if n := p.viewport.TotalLineCount(); n > p.viewport.Height {
		return n
	}
	return p.viewport.Height
}

func (p *panel) ClientHeight() int { return p.viewport.Height }

func (p *panel) SetScrollTop(top int) {
	(*Model)(p).sync()
	p.viewport.SetYOffset(top)
}

type inputView Model

func (i *inputView) Value() string     { return i.input.Value() }
func (i *inputView) SetValue(v string) { i.input.SetValue(v) }

func (i *inputView) SetDisabled(disabled bool) {
	i.disabled = disabled
	if disabled {
		i.input.Blur()
		return
	}
	i.input.Focus()
}

type form Model

func (f *form) Submit(s chatsession.Submission) {
	f.SubmitNotify(s, func(err error) {
		if err != nil {
			f.log.Error().Err(err).Str("room_id", s.RoomID).Msg("failed to send message")
		}
	})
}

// SubmitNotify sends the message off the update loop and reports back.
func (f *form) SubmitNotify(s chatsession.Submission, done func(error)) {
	client, ctx := f.client, f.ctx
	go func() {
		done(client.Send(ctx, s.RoomID, s.Message))
	}()
}

type indicator Model

func (i *indicator) SetBusy(busy bool) { i.busy = busy }

type noticeArea Model

func (a *noticeArea) InsertNotice(text string) chatsession.Notice {
	n := &notice{text: sanitize(text), owner: (*Model)(a)}
	a.notices = append([]*notice{n}, a.notices...)
	(*Model)(a).resize()
	return n
}

type visibility Model

func (v *visibility) Hidden() bool { return !v.focused }

type styles struct {
	title      lipgloss.Style
	muted      lipgloss.Style
	sender     lipgloss.Style
	own        lipgloss.Style
	other      lipgloss.Style
	notice     lipgloss.Style
	inputPanel lipgloss.Style
	spinner    lipgloss.Style
}

func newStyles() styles {
	accent := lipgloss.Color("#01cdfe")
	muted := lipgloss.Color("#8a8a8a")
	return styles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		muted:      lipgloss.NewStyle().Foreground(muted),
		sender:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff71ce")),
		own:        lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1")),
		other:      lipgloss.NewStyle(),
		notice:     lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true),
		inputPanel: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent),
		spinner:    lipgloss.NewStyle().Foreground(accent),
	}
}
