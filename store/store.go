package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/internal/profile"
	"github.com/hrygo/divinecanvas/store/cache"
)

// Store provides database access to all raw objects.
// It does not serialize concurrent turns on one session; callers own that.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// messageCache holds encoded message logs keyed by session.
	messageCache *cache.TieredCache
	// logGenerations counts appends per session (int64 -> *atomic.Int64).
	logGenerations sync.Map
	now            func() time.Time
}

// New creates a new instance of Store. A nil messageCache uses an
// in-memory tier only.
func New(driver Driver, profile *profile.Profile, messageCache *cache.TieredCache) *Store {
	if messageCache == nil {
		messageCache = cache.NewTieredCache(nil)
	}
	return &Store{
		driver:       driver,
		profile:      profile,
		messageCache: messageCache,
		now:          time.Now,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	if err := s.messageCache.Close(); err != nil {
		return errors.Wrap(err, "failed to close cache")
	}
	return s.driver.Close()
}

// CreateChatSession creates a session titled title.
func (s *Store) CreateChatSession(ctx context.Context, title string) (*ChatSession, error) {
	now := s.now().Unix()
	return s.driver.CreateChatSession(ctx, &ChatSession{
		Title:     title,
		CreatedTs: now,
		UpdatedTs: now,
	})
}

// GetChatSession returns one session or ErrSessionNotFound.
func (s *Store) GetChatSession(ctx context.Context, id int64) (*ChatSession, error) {
	list, err := s.driver.ListChatSessions(ctx, &FindChatSession{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrSessionNotFound
	}
	return list[0], nil
}

// ListChatSessions returns all sessions, most recently updated first.
func (s *Store) ListChatSessions(ctx context.Context) ([]*ChatSession, error) {
	return s.driver.ListChatSessions(ctx, &FindChatSession{})
}

// DeleteChatSession deletes a session and its messages.
func (s *Store) DeleteChatSession(ctx context.Context, id int64) error {
	if err := s.driver.DeleteChatSession(ctx, &DeleteChatSession{ID: id}); err != nil {
		return err
	}
	s.logGeneration(id).Add(1)
	s.messageCache.Delete(ctx, messageLogKey(id))
	return nil
}

// GetChatMessage returns message id of the session. A message that is
// missing or belongs to another session is ErrParentMismatch.
func (s *Store) GetChatMessage(ctx context.Context, sessionID, id int64) (*ChatMessage, error) {
	list, err := s.driver.ListChatMessages(ctx, &FindChatMessage{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 || list[0].SessionID != sessionID {
		return nil, errors.Wrapf(ErrParentMismatch, "message %d, session %d", id, sessionID)
	}
	return list[0], nil
}

// CreateChatMessage appends a message to its session. The parent, when
// set, must belong to the same session. The session's updated_ts is bumped.
func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	if _, err := s.GetChatSession(ctx, create.SessionID); err != nil {
		return nil, err
	}
	if create.ParentID != nil {
		if _, err := s.GetChatMessage(ctx, create.SessionID, *create.ParentID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	create.CreatedTs = now.Unix()
	msg, err := s.driver.CreateChatMessage(ctx, create)
	if err != nil {
		return nil, err
	}
	s.logGeneration(create.SessionID).Add(1)
	s.messageCache.Delete(ctx, messageLogKey(create.SessionID))

	updatedTs := now.Unix()
	if err := s.driver.UpdateChatSession(ctx, &UpdateChatSession{ID: create.SessionID, UpdatedTs: &updatedTs}); err != nil {
		return nil, errors.Wrap(err, "failed to bump session")
	}
	return msg, nil
}

// ListChatMessages returns the session's message log in order, reading
// through the message cache. A log fetched while an append landed is
// evicted again so the stale copy does not outlive the call.
func (s *Store) ListChatMessages(ctx context.Context, sessionID int64) ([]*ChatMessage, error) {
	key := messageLogKey(sessionID)
	generation := s.logGeneration(sessionID)
	before := generation.Load()

	raw, err := s.messageCache.Get(ctx, key, func(ctx context.Context, _ string) ([]byte, error) {
		list, err := s.driver.ListChatMessages(ctx, &FindChatMessage{SessionID: &sessionID})
		if err != nil {
			return nil, err
		}
		return json.Marshal(list)
	})
	if err != nil {
		return nil, err
	}
	if generation.Load() != before {
		s.messageCache.Delete(ctx, key)
	}

	var list []*ChatMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.Wrap(err, "failed to decode cached message log")
	}
	return list, nil
}

func (s *Store) logGeneration(sessionID int64) *atomic.Int64 {
	if g, ok := s.logGenerations.Load(sessionID); ok {
		return g.(*atomic.Int64)
	}
	g, _ := s.logGenerations.LoadOrStore(sessionID, new(atomic.Int64))
	return g.(*atomic.Int64)
}

func messageLogKey(sessionID int64) string {
	return "chat_messages:" + strconv.FormatInt(sessionID, 10)
}
