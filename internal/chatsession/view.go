package chatsession

// Panel is the scrollable message-list container. Geometry is expressed in
// the host's own units (pixels in a document, lines in a terminal).
type Panel interface {
	// Clear removes every rendered node, including the empty state.
	Clear()
	// Append renders one message at the end of the list. Sender and
	// content are plain text and must never be interpreted as markup.
	Append(e Entry)
	// ShowEmpty renders the empty-state placeholder.
	ShowEmpty()

	ScrollTop() int
	ScrollHeight() int
	ClientHeight() int
	SetScrollTop(top int)
}

// Input is the message input field.
type Input interface {
	Value() string
	SetValue(v string)
	SetDisabled(disabled bool)
}

// Submission is the payload the message form carries.
type Submission struct {
	RoomID  string
	Message string
}

// Form performs the host's native submission of the message form. The
// controller never issues that request itself.
type Form interface {
	Submit(s Submission)
}

// CompletionForm is a Form that can report when the submission finished.
// done may be called from any goroutine.
type CompletionForm interface {
	Form
	SubmitNotify(s Submission, done func(err error))
}

// Indicator is the loading indicator shown during a refresh cycle.
type Indicator interface {
	SetBusy(busy bool)
}

// NoticeArea is the primary content region error notices are inserted into.
type NoticeArea interface {
	// InsertNotice places a dismissible notice with plain text at the top.
	InsertNotice(text string) Notice
}

// Notice is an inserted notice. Remove is a no-op once it is gone.
type Notice interface {
	Remove()
}

// Visibility reports whether the page is currently hidden.
type Visibility interface {
	Hidden() bool
}

// Page binds the controller to the elements it drives. Every field is
// optional; a nil field disables the matching feature.
type Page struct {
	RoomID     string
	Messages   Panel
	Input      Input
	Form       Form
	Indicator  Indicator
	Notices    NoticeArea
	Visibility Visibility
}

func (p Page) hidden() bool {
	return p.Visibility != nil && p.Visibility.Hidden()
}
