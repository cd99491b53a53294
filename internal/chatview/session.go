package chatview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
)

const (
	invalidURLHint = "Please enter a valid LeetCode problem URL before asking a question."
	failureReply   = "Sorry, I encountered an error. Please try again."
)

var (
	// ErrBusy is returned when a submission is still streaming.
	ErrBusy = errors.New("a response is still streaming")
	// ErrEmptyInput is returned for blank messages.
	ErrEmptyInput = errors.New("message is empty")
	// ErrInvalidURL is returned when the problem URL fails validation.
	ErrInvalidURL = errors.New("invalid LeetCode URL")
)

// State is the visible mode of the chat view.
type State int

const (
	// StateWelcome shows the welcome screen before the first message.
	StateWelcome State = iota
	// StateActive shows the conversation.
	StateActive
	// StateLoading shows the conversation while a reply streams in.
	StateLoading
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateLoading:
		return "loading"
	default:
		return "welcome"
	}
}

// Streamer sends one chat request and reports chunks as they arrive.
type Streamer interface {
	Stream(ctx context.Context, req chat.Request, onChunk func(string)) (bool, error)
}

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	State            State
	URL              string
	URLValid         bool
	SidebarCollapsed bool
	Messages         []chat.Message
}

// Session holds the client-side conversation state.
type Session struct {
	mu sync.Mutex

	messages         []chat.Message
	url              string
	previousURL      string
	urlValid         bool
	loading          bool
	sidebarCollapsed bool
	// generation changes on Reset; replies to an older generation are dropped.
	generation       uint64

	client   Streamer
	now      func() time.Time
	onChange func(Snapshot)
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithOnChange registers a callback invoked after every state change.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) { s.onChange = fn }
}

// NewSession creates an empty session that talks through client.
func NewSession(client Streamer, opts ...Option) *Session {
	s := &Session{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetURL updates the problem URL and re-validates it.
func (s *Session) SetURL(url string) bool {
	s.mu.Lock()
	s.url = strings.TrimSpace(url)
	s.urlValid = problem.Valid(s.url)
	valid := s.urlValid
	s.mu.Unlock()

	s.notify()
	return valid
}

// SelectProblem sets the URL from a sidebar entry.
func (s *Session) SelectProblem(entry problem.Entry) bool {
	return s.SetURL(entry.URL)
}

// ToggleSidebar flips the sidebar between collapsed and expanded.
func (s *Session) ToggleSidebar() bool {
	s.mu.Lock()
	s.sidebarCollapsed = !s.sidebarCollapsed
	collapsed := s.sidebarCollapsed
	s.mu.Unlock()

	s.notify()
	return collapsed
}

// Submit sends text as the next user turn and streams the reply into the
// last assistant message. It blocks until the reply is complete.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.urlValid {
		s.messages = append(s.messages, s.newMessage(chat.RoleAssistant, invalidURLHint))
		s.mu.Unlock()
		s.notify()
		return ErrInvalidURL
	}
	if text == "" {
		s.mu.Unlock()
		return ErrEmptyInput
	}

	userMsg := s.newMessage(chat.RoleUser, text)
	history := append(append([]chat.Message(nil), s.messages...), userMsg)
	req := chat.Request{
		Messages:    history,
		LeetcodeURL: s.url,
		IsNewChat:   len(s.messages) == 0,
		PreviousURL: s.previousURL,
	}
	sentURL := s.url

	s.messages = append(history, s.newMessage(chat.RoleAssistant, ""))
	userIdx := len(s.messages) - 2
	replyIdx := len(s.messages) - 1
	s.loading = true
	generation := s.generation
	s.mu.Unlock()
	s.notify()

	var accumulated strings.Builder
	codeRequest, err := s.client.Stream(ctx, req, func(chunk string) {
		accumulated.WriteString(chunk)
		s.mu.Lock()
		if s.generation != generation {
			s.mu.Unlock()
			return
		}
		s.messages[replyIdx].Content = accumulated.String()
		s.mu.Unlock()
		s.notify()
	})

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return err
	}
	var respErr *ResponseError
	if err == nil || errors.As(err, &respErr) || errors.Is(err, ErrStreamInterrupted) {
		s.previousURL = sentURL
	}
	if err == nil {
		s.messages[userIdx].IsCodeRequest = codeRequest
	} else {
		s.messages[replyIdx].Content = failureReply
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()

	return err
}

// Reset starts a new chat: the conversation, the problem URL and the previous
// URL are cleared. A reply still streaming for the old chat is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	s.messages = nil
	s.url = ""
	s.urlValid = false
	s.previousURL = ""
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// State returns the current view state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// Snapshot returns a copy of the whole session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.loading:
		return StateLoading
	case len(s.messages) == 0:
		return StateWelcome
	default:
		return StateActive
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:            s.stateLocked(),
		URL:              s.url,
		URLValid:         s.urlValid,
		SidebarCollapsed: s.sidebarCollapsed,
		Messages:         append([]chat.Message(nil), s.messages...),
	}
}

func (s *Session) newMessage(role chat.Role, content string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}
