// Package chatsession keeps an open chat room view in sync with the server.
//
// A Controller owns the refresh cycle of one room page: it polls the room's
// message history, re-renders the message panel, keeps the reader's scroll
// position, guards the message form against empty submissions and surfaces
// transient error notices. The controller is host-agnostic; a host binds its
// widgets through Page and runs every call on a single Dispatcher.
package chatsession

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/proto"
)

const (
	DefaultInterval         = 15 * time.Second
	DefaultSubmitResetDelay = 100 * time.Millisecond
	DefaultNoticeTTL        = 5 * time.Second
	DefaultBottomTolerance  = 50

	RefreshFailedText = "Failed to refresh messages"
	SendFailedText    = "Failed to send message"

	KeyEnter = "Enter"
)

// MessageSource fetches the history of a room. A nil slice with a nil
// error means the response carried no message list.
type MessageSource interface {
	Messages(ctx context.Context, roomID string) ([]proto.Message, error)
}

// Options tunes timings and presentation. Zero values select defaults.
type Options struct {
	Interval         time.Duration
	SubmitResetDelay time.Duration
	NoticeTTL        time.Duration
	BottomTolerance  int
	Location         *time.Location
	TimeLayout       string
	// AfterRender runs after the panel or a notice has been rebuilt.
	AfterRender func()
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.SubmitResetDelay <= 0 {
		o.SubmitResetDelay = DefaultSubmitResetDelay
	}
	if o.NoticeTTL <= 0 {
		o.NoticeTTL = DefaultNoticeTTL
	}
	if o.BottomTolerance <= 0 {
		o.BottomTolerance = DefaultBottomTolerance
	}
	if o.TimeLayout == "" {
		o.TimeLayout = DefaultTimeLayout
	}
	return o
}

// Controller drives one room page. Apart from New and Start, its methods
// must be called from tasks running on the dispatcher.
type Controller struct {
	page       Page
	source     MessageSource
	dispatcher Dispatcher
	opts       Options
	format     Formatter
	log        *zerolog.Logger

	ctx        context.Context
	refreshing bool
	submitting bool
}

// New creates a controller for page. The message list is not fetched
// until Start or Refresh is called.
func New(page Page, source MessageSource, dispatcher Dispatcher, logger *zerolog.Logger, opts Options) *Controller {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	opts = opts.withDefaults()
	l := logger.With().Str("room_id", page.RoomID).Logger()
	return &Controller{
		page:       page,
		source:     source,
		dispatcher: dispatcher,
		opts:       opts,
		format:     Formatter{Location: opts.Location, Layout: opts.TimeLayout},
		log:        &l,
		ctx:        context.Background(),
	}
}

// Start performs the initial refresh and begins periodic polling until ctx
// is cancelled. Ticks are skipped while the page is hidden or a refresh is
// outstanding.
func (c *Controller) Start(ctx context.Context) {
	c.dispatcher.Post(func() {
		c.ctx = ctx
		c.Refresh()
	})

	go func() {
		ticker := time.NewTicker(c.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.dispatcher.Post(c.tick)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Controller) tick() {
	if c.page.hidden() || c.refreshing {
		return
	}
	c.Refresh()
}

// IsRefreshing reports whether a refresh cycle is outstanding.
func (c *Controller) IsRefreshing() bool {
	return c.refreshing
}

// Refresh starts a refresh cycle unless one is already outstanding or the
// page has no room. The request itself runs off the dispatcher.
func (c *Controller) Refresh() {
	if c.refreshing || c.page.RoomID == "" {
		return
	}
	c.refreshing = true
	c.setBusy(true)

	roomID := c.page.RoomID
	// An in-flight request outlives the page context and completes naturally.
	ctx := context.WithoutCancel(c.ctx)
	go func() {
		var (
			msgs []proto.Message
			err  error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fetch messages: panic: %v", r)
			}
			c.dispatcher.Post(func() { c.finishRefresh(msgs, err) })
		}()
		msgs, err = c.source.Messages(ctx, roomID)
	}()
}

func (c *Controller) finishRefresh(msgs []proto.Message, err error) {
	defer func() {
		c.setBusy(false)
		c.refreshing = false
	}()

	if err != nil {
		c.log.Error().Err(err).Msg("error refreshing messages")
		c.showError(RefreshFailedText)
		return
	}
	if msgs == nil {
		return
	}
	Reconcile(c.page.Messages, c.format.Entries(msgs), c.opts.BottomTolerance)
	c.afterRender()
}

// RefreshAction returns a function that requests a refresh from any
// goroutine. Hosts expose it as their global refresh action.
func (c *Controller) RefreshAction() func() {
	return func() { c.dispatcher.Post(c.Refresh) }
}

// HandleRefreshClick handles activation of a refresh control. It reports
// whether the host's default action must be suppressed.
func (c *Controller) HandleRefreshClick() bool {
	c.Refresh()
	return true
}

// HandleVisibilityChange refreshes when the page is visible after a
// visibility change.
func (c *Controller) HandleVisibilityChange() {
	if c.page.hidden() {
		return
	}
	c.Refresh()
}

// HandleKeyDown handles a key press in the message input. Enter without
// shift submits the form; it reports whether the default action (inserting
// a newline) must be suppressed.
func (c *Controller) HandleKeyDown(key string, shift bool) bool {
	if key != KeyEnter || shift {
		return false
	}
	c.Submit()
	return true
}

// Submit submits the message form unless the input is blank or a previous
// submission is still pending. It reports whether the submission went ahead.
func (c *Controller) Submit() bool {
	in := c.page.Input
	if in == nil || c.page.Form == nil || c.submitting {
		return false
	}
	text := in.Value()
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.submitting = true
	in.SetDisabled(true)
	sub := Submission{RoomID: c.page.RoomID, Message: text}

	if cf, ok := c.page.Form.(CompletionForm); ok {
		cf.SubmitNotify(sub, func(err error) {
			c.dispatcher.Post(func() { c.finishSubmit(err) })
		})
		return true
	}

	c.page.Form.Submit(sub)
	c.after(c.opts.SubmitResetDelay, func() {
		c.submitting = false
		in.SetDisabled(false)
		in.SetValue("")
	})
	return true
}

func (c *Controller) finishSubmit(err error) {
	c.submitting = false
	in := c.page.Input
	in.SetDisabled(false)
	if err != nil {
		c.log.Error().Err(err).Msg("error sending message")
		c.showError(SendFailedText)
		return
	}
	in.SetValue("")
	c.Refresh()
}

func (c *Controller) showError(text string) {
	if c.page.Notices == nil {
		return
	}
	notice := c.page.Notices.InsertNotice(text)
	c.afterRender()
	if notice == nil {
		return
	}
	c.after(c.opts.NoticeTTL, notice.Remove)
}

func (c *Controller) setBusy(busy bool) {
	if c.page.Indicator != nil {
		c.page.Indicator.SetBusy(busy)
	}
}

func (c *Controller) afterRender() {
	if c.opts.AfterRender != nil {
		c.opts.AfterRender()
	}
}

// after runs fn on the dispatcher once d has elapsed.
func (c *Controller) after(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { c.dispatcher.Post(fn) })
}
