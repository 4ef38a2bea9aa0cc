package auth

import (
	"context"
	"sync"
	"time"
)

// Revoker records tokens that were logged out before their expiry.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error

	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevoker keeps revoked token ids in process memory. It is used when
// no Redis address is configured and in tests.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
		}
	}
	if until.After(now) {
		m.revoked[tokenID] = until
	}
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.revoked[tokenID]
	return ok && exp.After(m.now()), nil
}
