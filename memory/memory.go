package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/marketadvisor/log"
)

// ErrEmptySession is returned when a session ID is empty.
var ErrEmptySession = errors.New("session id is empty")

// Roles of conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// AgentName is recorded in the metadata of assistant messages.
const AgentName = "marketing_strategy_advisor"

// Message is a single conversation turn.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(sessionID, role, content string, metadata map[string]any) Message {
	return Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists conversation messages.
type Store interface {
	// Append stores msgs at the end of their sessions. Either every message
	// is stored or none is.
	Append(ctx context.Context, msgs ...Message) error
	// History returns the last limit messages of a session, oldest first.
	// A non-positive limit returns the whole session.
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)
	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Adapter applies the workflow's memory policy on top of a Store.
type Adapter struct {
	store        Store
	historyLimit int
	logger       log.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHistoryLimit bounds the number of messages read per run.
func WithHistoryLimit(n int) Option {
	return func(a *Adapter) {
		a.historyLimit = n
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// NewAdapter wraps store. The default history limit is 20 messages.
func NewAdapter(store Store, opts ...Option) *Adapter {
	a := &Adapter{store: store, historyLimit: 20}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.GetDefaultLogger()
	}
	return a
}

// History returns the recent messages of a session. Read failures are logged
// and yield an empty history.
func (a *Adapter) History(ctx context.Context, sessionID string) []Message {
	if sessionID == "" {
		return []Message{}
	}
	msgs, err := a.store.History(ctx, sessionID, a.historyLimit)
	if err != nil {
		a.logger.Warn("failed to load history for session %s: %v", sessionID, err)
		return []Message{}
	}
	return msgs
}

// AppendTurn stores the user query with metadata and the assistant answer
// with metadata plus the agent name in a single Append, so a turn is never
// half written.
func (a *Adapter) AppendTurn(ctx context.Context, sessionID, query, answer string, metadata map[string]any) error {
	if sessionID == "" {
		return ErrEmptySession
	}

	assistantMeta := make(map[string]any, len(metadata)+1)
	maps.Copy(assistantMeta, metadata)
	assistantMeta["agent"] = AgentName

	err := a.store.Append(ctx,
		NewMessage(sessionID, RoleUser, query, maps.Clone(metadata)),
		NewMessage(sessionID, RoleAssistant, answer, assistantMeta),
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Delete removes a session.
func (a *Adapter) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return a.store.Delete(ctx, sessionID)
}

// Close closes the underlying store.
func (a *Adapter) Close() error {
	return a.store.Close()
}

// Tail returns the last n messages of msgs.
func Tail(msgs []Message, n int) []Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
