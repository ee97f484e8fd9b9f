package register

import (
	"context"
	"fmt"
	"sync"

	"registerbot/pkg/ports/chatport"
	"registerbot/pkg/store"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Sessions maps a person id to their live Registration. Sessions are created
// lazily on first contact: the profile is fetched from the platform and a
// previously finished record is resumed from the store. Creation for the same
// never-seen user is serialized through singleflight so concurrent first
// messages cannot produce duplicate sessions.
type Sessions struct {
	chat   chatport.Port
	store  store.Store
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Registration
	group    singleflight.Group
}

// NewSessions builds an empty session store.
func NewSessions(chat chatport.Port, st store.Store, opts Options, logger *zap.Logger) *Sessions {
	return &Sessions{
		chat:     chat,
		store:    st,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Registration),
	}
}

// GetOrCreate returns the live session for personID, creating it on first
// contact. Exactly one Registration instance exists per user id for the
// process lifetime.
func (s *Sessions) GetOrCreate(ctx context.Context, personID string) (*Registration, error) {
	s.mu.Lock()
	reg, ok := s.sessions[personID]
	s.mu.Unlock()
	if ok {
		return reg, nil
	}

	v, err, _ := s.group.Do(personID, func() (interface{}, error) {
		s.mu.Lock()
		existing, ok := s.sessions[personID]
		s.mu.Unlock()
		if ok {
			return existing, nil
		}

		person, err := s.chat.GetPerson(ctx, personID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch profile %s: %w", personID, err)
		}

		created, err := NewRegistration(ctx, personID, person.DisplayName, person.PrimaryEmail(), s.store, s.opts)
		if err != nil {
			return nil, err
		}

		s.logger.Info("session created",
			zap.String("person_id", personID),
			zap.Bool("resumed", created.Done()))

		s.mu.Lock()
		s.sessions[personID] = created
		s.mu.Unlock()
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Registration), nil
}

// Len reports how many sessions are live.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
