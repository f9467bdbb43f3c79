package memory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultTTL      = 1800 * time.Second
	DefaultMaxTurns = 20
	DefaultPrefix   = "message_store:"
)

// Store is a key/value store with per-key expiry.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent or
	// expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key and resets its expiry to ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Speaker string

const (
	SpeakerHuman Speaker = "human"
	SpeakerAI    Speaker = "ai"
)

// Turn is one utterance in a session transcript.
type Turn struct {
	Speaker Speaker `json:"type"`
	Text    string  `json:"content"`
}

type Config struct {
	Logger *slog.Logger
	Store  Store

	// TTL is the idle expiry applied on every save.
	TTL time.Duration

	// MaxTurns bounds the stored transcript. Oldest turns are dropped in
	// whole user/assistant pairs.
	MaxTurns int

	// KeyPrefix is prepended to session IDs to form store keys.
	KeyPrefix string
}

func (cfg *Config) Validate() error {
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxTurns%2 != 0 {
		cfg.MaxTurns++
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultPrefix
	}
	return nil
}

// Manager loads and saves per-session transcripts. Store failures never
// reach the caller: loads degrade to an empty transcript and saves are
// logged and dropped.
type Manager struct {
	log *slog.Logger
	cfg Config
}

func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{log: cfg.Logger, cfg: cfg}, nil
}

// Load returns the session transcript rendered as text, or "" if there is
// none.
func (m *Manager) Load(ctx context.Context, sessionID string) string {
	turns, err := m.turns(ctx, sessionID)
	if err != nil {
		m.log.Warn("memory: failed to load transcript, starting empty", "session_id", sessionID, "error", err)
		return ""
	}
	return Render(turns)
}

// Save appends one user/assistant pair to the session transcript and
// refreshes its expiry. If the stored transcript cannot be read, the pair is
// dropped and the stored transcript is left untouched.
func (m *Manager) Save(ctx context.Context, sessionID, userText, assistantText string) {
	existing, err := m.turns(ctx, sessionID)
	if err != nil {
		m.log.Error("memory: failed to read transcript, turn not saved", "session_id", sessionID, "error", err)
		return
	}
	turns := append(existing,
		Turn{Speaker: SpeakerHuman, Text: userText},
		Turn{Speaker: SpeakerAI, Text: assistantText},
	)
	if len(turns) > m.cfg.MaxTurns {
		turns = turns[len(turns)-m.cfg.MaxTurns:]
	}

	data, err := json.Marshal(turns)
	if err != nil {
		m.log.Error("memory: failed to encode transcript", "session_id", sessionID, "error", err)
		return
	}
	if err := m.cfg.Store.Set(ctx, m.key(sessionID), data, m.cfg.TTL); err != nil {
		m.log.Error("memory: failed to save transcript", "session_id", sessionID, "error", err)
		return
	}
	m.log.Debug("memory: saved transcript", "session_id", sessionID, "turns", len(turns))
}

// turns returns the stored transcript. Only store failures are errors; an
// unreadable transcript is discarded.
func (m *Manager) turns(ctx context.Context, sessionID string) ([]Turn, error) {
	data, ok, err := m.cfg.Store.Get(ctx, m.key(sessionID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		m.log.Warn("memory: discarding unreadable transcript", "session_id", sessionID, "error", err)
		return nil, nil
	}
	return turns, nil
}

func (m *Manager) key(sessionID string) string {
	return m.cfg.KeyPrefix + sessionID
}

// Render formats turns as "Human: ..." / "AI: ..." lines.
func Render(turns []Turn) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch t.Speaker {
		case SpeakerHuman:
			sb.WriteString("Human: ")
		default:
			sb.WriteString("AI: ")
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}
