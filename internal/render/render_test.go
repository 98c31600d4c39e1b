package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/vovakirdan/roomchat/internal/chatsession"
	"github.com/vovakirdan/roomchat/internal/proto"
)

const samplePage = `<!DOCTYPE html><html><body>
<div class="container-fluid">
  <a href="/chat/5" data-action="refresh"><i id="refresh-icon" data-feather="refresh-cw"></i></a>
  <div id="messagesContainer" class="messages"></div>
  <form id="messageForm" method="POST" action="/send_message">
    <input type="hidden" name="room_id" value="5">
    <textarea id="messageInput" name="message"></textarea>
  </form>
</div>
</body></html>`

type staticSource struct {
	msgs []proto.Message
	err  error
}

func (s staticSource) Messages(context.Context, string) ([]proto.Message, error) {
	return s.msgs, s.err
}

func parseSample(t *testing.T, opts BindOptions) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(samplePage), opts)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestMessagesHTMLEscapesContent(t *testing.T) {
	out, err := MessagesHTML([]chatsession.Entry{
		{Sender: "<b>eve</b>", Content: "<script>alert(1)</script>", Time: "10:00"},
		{Own: true, Content: "mine", Time: "10:01"},
	})
	if err != nil {
		t.Fatalf("MessagesHTML: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "<script>") || strings.Contains(s, "<b>") {
		t.Fatalf("markup not escaped: %s", s)
	}
	if !strings.Contains(s, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Fatalf("expected literal script text, got %s", s)
	}
	if strings.Count(s, `class="message-sender"`) != 1 {
		t.Fatalf("expected sender only on the other user's message: %s", s)
	}
	if !strings.Contains(s, `class="message message-own"`) {
		t.Fatalf("expected own message class: %s", s)
	}

	empty, err := MessagesHTML(nil)
	if err != nil {
		t.Fatalf("MessagesHTML: %v", err)
	}
	if !strings.Contains(string(empty), EmptyStateText) {
		t.Fatalf("expected empty state, got %s", empty)
	}
}

func TestBindFindsPageElements(t *testing.T) {
	doc := parseSample(t, BindOptions{ClientHeight: 300})

	if doc.Page.RoomID != "5" {
		t.Fatalf("expected room 5, got %q", doc.Page.RoomID)
	}
	if doc.Page.Messages == nil || doc.Page.Input == nil || doc.Page.Form == nil ||
		doc.Page.Indicator == nil || doc.Page.Notices == nil || doc.RefreshControl == nil {
		t.Fatalf("expected all elements bound, got %+v", doc.Page)
	}
	if doc.Form.Action() != "/send_message" {
		t.Fatalf("unexpected action %q", doc.Form.Action())
	}
	if doc.Page.Visibility != nil {
		t.Fatal("expected no visibility source")
	}
}

func TestBindToleratesMissingElements(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<html><body><p>login</p></body></html>`), BindOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := doc.Page
	if p.RoomID != "" || p.Messages != nil || p.Input != nil || p.Form != nil || p.Indicator != nil || p.Notices != nil {
		t.Fatalf("expected nothing bound, got %+v", p)
	}
	if doc.MessagesMarkup() != "" {
		t.Fatal("expected no markup")
	}
	c := chatsession.New(p, staticSource{}, chatsession.NewLoop(1), nil, chatsession.Options{})
	if doc.ActivateRefresh(c) {
		t.Fatal("expected no refresh control to activate")
	}
}

func TestInputTextarea(t *testing.T) {
	doc := parseSample(t, BindOptions{})

	doc.Input.SetValue("hello <there>")
	if doc.Input.Value() != "hello <there>" {
		t.Fatalf("unexpected value %q", doc.Input.Value())
	}
	doc.Input.SetDisabled(true)
	if !doc.Input.Disabled() {
		t.Fatal("expected disabled")
	}
	doc.Input.SetDisabled(false)
	if doc.Input.Disabled() {
		t.Fatal("expected enabled")
	}
}

func TestNoticeInsertAndRemove(t *testing.T) {
	doc := parseSample(t, BindOptions{})

	n := doc.Notices.InsertNotice("Failed to refresh messages")
	first := doc.Notices.node.FirstChild
	if first == nil || !hasClass(first, "alert-danger") {
		t.Fatalf("expected alert at top, got %v", first)
	}
	if !strings.Contains(textContent(first), "Failed to refresh messages") {
		t.Fatalf("unexpected notice text %q", textContent(first))
	}
	if find(first, func(c *html.Node) bool { return hasClass(c, "btn-close") }) == nil {
		t.Fatal("expected dismiss button")
	}

	n.Remove()
	n.Remove()
	if find(doc.Root, func(c *html.Node) bool { return hasClass(c, "alert") }) != nil {
		t.Fatal("expected notice removed")
	}
}

func TestPanelScrollModel(t *testing.T) {
	doc := parseSample(t, BindOptions{ClientHeight: 300})
	p := doc.Panel

	if p.ScrollHeight() != 300 {
		t.Fatalf("expected empty panel to fill viewport, got %d", p.ScrollHeight())
	}
	entries := make([]chatsession.Entry, 20)
	for i := range entries {
		entries[i] = chatsession.Entry{Sender: "bob", Content: "line"}
	}
	chatsession.Reconcile(p, entries, chatsession.DefaultBottomTolerance)

	want := 20 * (messagePadding + senderHeight + lineHeight)
	if p.ScrollHeight() != want {
		t.Fatalf("expected height %d, got %d", want, p.ScrollHeight())
	}
	// Starting at top of a short panel counts as the bottom.
	if p.ScrollTop() != want-300 {
		t.Fatalf("expected scroll at bottom, got %d", p.ScrollTop())
	}

	p.SetScrollTop(100)
	chatsession.Reconcile(p, append(entries, chatsession.Entry{Own: true, Content: "a\nb"}), chatsession.DefaultBottomTolerance)
	if p.ScrollTop() != 100 {
		t.Fatalf("expected scroll kept at 100, got %d", p.ScrollTop())
	}

	p.SetScrollTop(1 << 20)
	if p.ScrollTop() != p.ScrollHeight()-p.ClientHeight() {
		t.Fatalf("expected clamped scroll, got %d", p.ScrollTop())
	}
}

func TestControllerRendersIntoDocument(t *testing.T) {
	var submitted []chatsession.Submission
	doc := parseSample(t, BindOptions{
		ClientHeight: 300,
		Submit: func(action string, s chatsession.Submission) {
			if action != "/send_message" {
				t.Errorf("unexpected action %q", action)
			}
			submitted = append(submitted, s)
		},
	})

	loop := chatsession.NewLoop(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	src := staticSource{msgs: []proto.Message{
		{ID: 1, Sender: "alice", Content: "mine", IsOwn: true},
		{ID: 2, Sender: "mallory", Content: "<script>alert(1)</script>"},
	}}
	c := chatsession.New(doc.Page, src, loop, nil, chatsession.Options{Location: time.UTC})

	var activated bool
	loop.Do(func() { activated = doc.ActivateRefresh(c) })
	if !activated {
		t.Fatal("expected refresh control activated")
	}
	waitIdle(t, loop, c)

	var markup string
	loop.Do(func() { markup = doc.MessagesMarkup() })
	if strings.Count(markup, `class="message `) != 2 {
		t.Fatalf("expected 2 message elements, got %s", markup)
	}
	if strings.Contains(markup, "<script>") || !strings.Contains(markup, "&lt;script&gt;") {
		t.Fatalf("expected escaped content, got %s", markup)
	}
	if strings.Index(markup, "mine") > strings.Index(markup, "mallory") {
		t.Fatalf("expected server order, got %s", markup)
	}

	loop.Do(func() {
		doc.Input.SetValue("   ")
		c.HandleKeyDown(chatsession.KeyEnter, false)
		doc.Input.SetValue("hi")
		c.HandleKeyDown(chatsession.KeyEnter, false)
	})
	loop.Do(func() {
		if len(submitted) != 1 || submitted[0] != (chatsession.Submission{RoomID: "5", Message: "hi"}) {
			t.Errorf("unexpected submissions %+v", submitted)
		}
	})
}

func waitIdle(t *testing.T, loop *chatsession.Loop, c *chatsession.Controller) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var busy bool
		loop.Do(func() { busy = c.IsRefreshing() })
		if !busy {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("refresh did not finish")
}
