// Package memstore keeps tenants, users and turns in process memory. It backs
// local runs (STORE_BACKEND=memory) and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/savaki/nutricoach-relay/pkg/models"
)

// Store is a concurrency-safe in-memory implementation of the relay's storage
type Store struct {
	mu      sync.RWMutex
	tenants map[string]models.Tenant
	users   map[string]models.User
	turns   map[string][]models.Turn
}

// New creates an empty store
func New() *Store {
	return &Store{
		tenants: make(map[string]models.Tenant),
		users:   make(map[string]models.User),
		turns:   make(map[string][]models.Turn),
	}
}

// PutTenant adds or replaces a tenant
func (s *Store) PutTenant(tenant models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenant.TenantID] = tenant
}

// GetTenant returns a copy of the tenant or models.ErrNotFound
func (s *Store) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, models.ErrNotFound)
	}
	return &tenant, nil
}

// TouchUser sets last activity and fills in a display name only when none exists
func (s *Store) TouchUser(ctx context.Context, tenantID, userID, displayName string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.ConversationKey(tenantID, userID)
	user, ok := s.users[key]
	if !ok {
		user = models.User{TenantID: tenantID, UserID: userID}
	}
	if user.DisplayName == "" {
		user.DisplayName = displayName
	}
	user.LastMessageAt = at
	s.users[key] = user
	return nil
}

// PutUser replaces a user record, the way the dashboard edits profiles
func (s *Store) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[models.ConversationKey(user.TenantID, user.UserID)] = user
}

// GetUser returns a copy of the user or models.ErrNotFound
func (s *Store) GetUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[models.ConversationKey(tenantID, userID)]
	if !ok {
		return nil, fmt.Errorf("user %s/%s: %w", tenantID, userID, models.ErrNotFound)
	}
	return &user, nil
}

// SaveTurn appends a turn, keeping each conversation sorted by turn ID
func (s *Store) SaveTurn(ctx context.Context, turn *models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := turn.ConversationKey
	if key == "" {
		key = models.ConversationKey(turn.TenantID, turn.UserID)
	}
	for _, existing := range s.turns[key] {
		if existing.TurnID == turn.TurnID {
			return fmt.Errorf("turn %s already exists", turn.TurnID)
		}
	}

	turns := append(s.turns[key], *turn)
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].TurnID < turns[j].TurnID })
	s.turns[key] = turns
	return nil
}

// RecentTurns returns up to limit turns, most recent first
func (s *Store) RecentTurns(ctx context.Context, tenantID, userID string, limit int) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[models.ConversationKey(tenantID, userID)]
	out := make([]models.Turn, 0, min(limit, len(turns)))
	for i := len(turns) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, turns[i])
	}
	return out, nil
}

// Turns returns the full chronological log for a user
func (s *Store) Turns(tenantID, userID string) []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Turn(nil), s.turns[models.ConversationKey(tenantID, userID)]...)
}
