// Package render builds the chat page's message markup and binds a parsed
// page document to a chatsession controller.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vovakirdan/roomchat/internal/chatsession"
)

// EmptyStateText is shown when a room has no messages.
const EmptyStateText = "No messages yet. Start the conversation!"

// MessageNode builds the element for one message. Sender and content are
// text nodes, so markup in them is escaped when rendered.
func MessageNode(e chatsession.Entry) *html.Node {
	class := "message message-other"
	if e.Own {
		class = "message message-own"
	}
	div := element(atom.Div, "class", class)
	if !e.Own {
		div.AppendChild(textElement(atom.Div, "message-sender", e.Sender))
	}
	div.AppendChild(textElement(atom.Div, "message-content", e.Content))
	div.AppendChild(textElement(atom.Div, "message-time", e.Time))
	return div
}

// EmptyStateNode builds the empty-room placeholder.
func EmptyStateNode() *html.Node {
	div := element(atom.Div, "class", "text-center text-muted py-5")
	div.AppendChild(element(atom.I, "data-feather", "message-circle", "style", "width: 48px; height: 48px;", "class", "mb-3"))
	p := element(atom.P)
	p.AppendChild(textNode(EmptyStateText))
	div.AppendChild(p)
	return div
}

// NoticeNode builds a dismissible error alert.
func NoticeNode(text string) *html.Node {
	div := element(atom.Div, "class", "alert alert-danger alert-dismissible fade show", "role", "alert")
	div.AppendChild(element(atom.I, "data-feather", "alert-circle", "class", "me-2"))
	div.AppendChild(textNode(text))
	div.AppendChild(element(atom.Button, "type", "button", "class", "btn-close", "data-bs-dismiss", "alert"))
	return div
}

// MessagesHTML renders the initial message list for a server page.
func MessagesHTML(entries []chatsession.Entry) (template.HTML, error) {
	var nodes []*html.Node
	if len(entries) == 0 {
		nodes = append(nodes, EmptyStateNode())
	}
	for _, e := range entries {
		nodes = append(nodes, MessageNode(e))
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render messages: %w", err)
		}
	}
	//nolint:gosec // element and text nodes only, escaped by html.Render
	return template.HTML(buf.String()), nil
}

// Render serializes n and its subtree.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func element(tag atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func textElement(tag atom.Atom, class, text string) *html.Node {
	n := element(tag, "class", class)
	n.AppendChild(textNode(text))
	return n
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// find returns the first node in document order matching pred.
func find(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := find(c, pred); n != nil {
			return n
		}
	}
	return nil
}

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	}
}
