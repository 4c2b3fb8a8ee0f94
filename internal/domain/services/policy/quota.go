package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scamlens/internal/domain/models"
)

var (
	// ErrQuotaExhausted is matched by every QuotaExhaustedError
	ErrQuotaExhausted = errors.New("daily scan quota exhausted")
	// ErrNoIdentity is returned when a subject has neither a user nor a client ID
	ErrNoIdentity = errors.New("subject has no identity")
)

// QuotaExhaustedError carries the limit that was hit
type QuotaExhaustedError struct {
	Limit   int
	Kind    models.ScanKind
	ResetAt time.Time
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("You have reached your daily limit of %d scans.", e.Limit)
}

// Is makes errors.Is(err, ErrQuotaExhausted) work
func (e *QuotaExhaustedError) Is(target error) bool {
	return target == ErrQuotaExhausted
}

// Subject identifies one quota record: a registered user or an anonymous
// client, for one scan kind.
type Subject struct {
	UserID   string
	ClientID string
	Kind     models.ScanKind
}

// Anonymous reports whether the subject has no registered user
func (s Subject) Anonymous() bool {
	return s.UserID == ""
}

// Key returns the store key for the subject
func (s Subject) Key() (string, error) {
	switch {
	case s.UserID != "":
		return "quota:user:" + s.UserID + ":" + string(s.Kind), nil
	case s.ClientID != "":
		return "quota:anon:" + s.ClientID + ":" + string(s.Kind), nil
	default:
		return "", ErrNoIdentity
	}
}

// Record is the persisted state of one quota window
type Record struct {
	Used    int
	ResetAt time.Time
}

// Rollover starts a fresh window when now is past ResetAt. A zero ResetAt
// means the record was never initialised.
func Rollover(rec Record, now time.Time) Record {
	if rec.ResetAt.IsZero() || now.After(rec.ResetAt) {
		return Record{Used: 0, ResetAt: models.NextResetAt(now)}
	}
	return rec
}

// Advance is the grant transition every store applies atomically: rollover
// first, then a conditional increment that never lets Used pass limit.
func Advance(rec Record, limit int, now time.Time) (Record, bool) {
	rec = Rollover(rec, now)
	if rec.Used >= limit {
		return rec, false
	}
	rec.Used++
	return rec, true
}

// Retreat undoes one grant inside the current window
func Retreat(rec Record, now time.Time) Record {
	rec = Rollover(rec, now)
	if rec.Used > 0 {
		rec.Used--
	}
	return rec
}

// QuotaStore persists quota records. Acquire must apply Advance atomically
// with respect to concurrent callers on the same subject.
type QuotaStore interface {
	Acquire(ctx context.Context, sub Subject, limit int, now time.Time) (Record, bool, error)
	Release(ctx context.Context, sub Subject, now time.Time) error
	Status(ctx context.Context, sub Subject, now time.Time) (Record, error)
}

// MemoryStore keeps quota records in process memory
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Acquire(_ context.Context, sub Subject, limit int, now time.Time) (Record, bool, error) {
	key, err := sub.Key()
	if err != nil {
		return Record{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, granted := Advance(m.records[key], limit, now)
	m.records[key] = rec
	return rec, granted, nil
}

func (m *MemoryStore) Release(_ context.Context, sub Subject, now time.Time) error {
	key, err := sub.Key()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[key]; ok {
		m.records[key] = Retreat(rec, now)
	}
	return nil
}

func (m *MemoryStore) Status(_ context.Context, sub Subject, now time.Time) (Record, error) {
	key, err := sub.Key()
	if err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return Rollover(m.records[key], now), nil
}

// Prune drops records whose window ended before now
func (m *MemoryStore) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, rec := range m.records {
		if now.After(rec.ResetAt) {
			delete(m.records, k)
			n++
		}
	}
	return n
}
