package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vovakirdan/roomchat/internal/chatsession"
)

// Element identifiers the chat page carries.
const (
	IDMessages    = "messagesContainer"
	IDInput       = "messageInput"
	IDForm        = "messageForm"
	IDRefreshIcon = "refresh-icon"

	RoomIDField    = "room_id"
	ContainerClass = "container-fluid"
	RefreshAction  = "refresh"

	spinAnimation = "animation: spin 1s linear infinite"
)

// Row heights of the layout model, in pixels.
const (
	messagePadding   = 28
	lineHeight       = 22
	senderHeight     = 18
	emptyStateHeight = 160
)

// Panel is a message container with a pixel scroll model.
type Panel struct {
	node   *html.Node
	client int
	top    int
}

// NewPanel wraps container with the given viewport height.
func NewPanel(container *html.Node, clientHeight int) *Panel {
	return &Panel{node: container, client: clientHeight}
}

// Clear removes all rendered children.
func (p *Panel) Clear() { removeChildren(p.node) }

// Append renders e at the end of the container.
func (p *Panel) Append(e chatsession.Entry) { p.node.AppendChild(MessageNode(e)) }

// ShowEmpty renders the empty-state placeholder.
func (p *Panel) ShowEmpty() { p.node.AppendChild(EmptyStateNode()) }

func (p *Panel) ScrollTop() int    { return p.top }
func (p *Panel) ClientHeight() int { return p.client }

// ScrollHeight is the laid-out height of the content, at least the
// viewport height.
func (p *Panel) ScrollHeight() int {
	h := 0
	for c := p.node.FirstChild; c != nil; c = c.NextSibling {
		h += rowHeight(c)
	}
	if h < p.client {
		h = p.client
	}
	return h
}

// SetScrollTop scrolls to top, clamped to the scrollable range.
func (p *Panel) SetScrollTop(top int) {
	limit := p.ScrollHeight() - p.client
	if top > limit {
		top = limit
	}
	if top < 0 {
		top = 0
	}
	p.top = top
}

func rowHeight(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	if !hasClass(n, "message") {
		return emptyStateHeight
	}
	h := messagePadding
	if find(n, func(c *html.Node) bool { return hasClass(c, "message-sender") }) != nil {
		h += senderHeight
	}
	if content := find(n, func(c *html.Node) bool { return hasClass(c, "message-content") }); content != nil {
		h += lineHeight * (strings.Count(textContent(content), "\n") + 1)
	}
	return h
}

// Input is a text input or textarea element.
type Input struct {
	node *html.Node
}

func (i *Input) Value() string {
	if i.node.DataAtom == atom.Textarea {
		return textContent(i.node)
	}
	v, _ := attr(i.node, "value")
	return v
}

func (i *Input) SetValue(v string) {
	if i.node.DataAtom == atom.Textarea {
		removeChildren(i.node)
		i.node.AppendChild(textNode(v))
		return
	}
	setAttr(i.node, "value", v)
}

func (i *Input) SetDisabled(disabled bool) {
	if disabled {
		setAttr(i.node, "disabled", "")
		return
	}
	removeAttr(i.node, "disabled")
}

// Disabled reports whether the element carries the disabled attribute.
func (i *Input) Disabled() bool {
	_, ok := attr(i.node, "disabled")
	return ok
}

// SubmitFunc performs a native form submission. It runs on the dispatcher
// and must not block.
type SubmitFunc func(action string, s chatsession.Submission)

// Form is the message form element.
type Form struct {
	node   *html.Node
	submit SubmitFunc
}

// Action returns the form's action attribute.
func (f *Form) Action() string {
	v, _ := attr(f.node, "action")
	return v
}

func (f *Form) Submit(s chatsession.Submission) {
	if f.submit != nil {
		f.submit(f.Action(), s)
	}
}

// Indicator animates the refresh icon while busy.
type Indicator struct {
	node *html.Node
}

func (i *Indicator) SetBusy(busy bool) {
	if busy {
		setAttr(i.node, "style", spinAnimation)
		return
	}
	removeAttr(i.node, "style")
}

// NoticeArea inserts alerts at the top of the primary content container.
type NoticeArea struct {
	node *html.Node
}

func (a *NoticeArea) InsertNotice(text string) chatsession.Notice {
	n := NoticeNode(text)
	a.node.InsertBefore(n, a.node.FirstChild)
	return notice{n}
}

type notice struct {
	node *html.Node
}

func (n notice) Remove() {
	if n.node.Parent != nil {
		n.node.Parent.RemoveChild(n.node)
	}
}

// Visibility is a settable page visibility state.
type Visibility struct {
	hidden bool
}

func (v *Visibility) Hidden() bool          { return v.hidden }
func (v *Visibility) SetHidden(hidden bool) { v.hidden = hidden }

// BindOptions configures Bind.
type BindOptions struct {
	// ClientHeight is the visible height of the message container.
	ClientHeight int
	Submit       SubmitFunc
	Visibility   chatsession.Visibility
}

// Document is a parsed chat page bound to controller views.
type Document struct {
	Root           *html.Node
	Page           chatsession.Page
	Panel          *Panel
	Input          *Input
	Form           *Form
	Notices        *NoticeArea
	RefreshControl *html.Node
}

// Parse parses an HTML page and binds it.
func Parse(r io.Reader, opts BindOptions) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return Bind(root, opts), nil
}

// Bind locates the chat elements in root. Elements the page lacks stay
// unbound and the matching controller features are disabled.
func Bind(root *html.Node, opts BindOptions) *Document {
	doc := &Document{Root: root}
	page := chatsession.Page{Visibility: opts.Visibility}

	if n := find(root, func(n *html.Node) bool {
		name, _ := attr(n, "name")
		return n.DataAtom == atom.Input && name == RoomIDField
	}); n != nil {
		page.RoomID, _ = attr(n, "value")
	}
	if n := find(root, byID(IDMessages)); n != nil {
		doc.Panel = NewPanel(n, opts.ClientHeight)
		page.Messages = doc.Panel
	}
	if n := find(root, byID(IDInput)); n != nil {
		doc.Input = &Input{node: n}
		page.Input = doc.Input
	}
	if n := find(root, byID(IDForm)); n != nil {
		doc.Form = &Form{node: n, submit: opts.Submit}
		page.Form = doc.Form
	}
	if n := find(root, byID(IDRefreshIcon)); n != nil {
		page.Indicator = &Indicator{node: n}
	}
	if n := find(root, func(n *html.Node) bool { return hasClass(n, ContainerClass) }); n != nil {
		doc.Notices = &NoticeArea{node: n}
		page.Notices = doc.Notices
	}
	doc.RefreshControl = find(root, func(n *html.Node) bool {
		v, ok := attr(n, "data-action")
		return ok && v == RefreshAction
	})

	doc.Page = page
	return doc
}

// ActivateRefresh activates the page's refresh control on c. It reports
// false when the page has no refresh control. It must run on c's
// dispatcher.
func (d *Document) ActivateRefresh(c *chatsession.Controller) bool {
	if d.RefreshControl == nil {
		return false
	}
	return c.HandleRefreshClick()
}

// MessagesMarkup serializes the children of the message container.
func (d *Document) MessagesMarkup() string {
	if d.Panel == nil {
		return ""
	}
	var sb strings.Builder
	for c := d.Panel.node.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(Render(c))
	}
	return sb.String()
}
