package user

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound signals that no user exists for the given id or email.
	ErrNotFound = errors.New("user: not found")
	// ErrEmailTaken signals a uniqueness violation on the email column.
	ErrEmailTaken = errors.New("user: email already registered")
	// ErrQuotaExceeded signals that the daily send quota has been used up.
	ErrQuotaExceeded = errors.New("user: daily email quota exceeded")
)

// UpdateParams carries the mutable subset of a user record. Nil fields are
// left unchanged.
type UpdateParams struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *Role
}

// Store is the injected repository contract for the user directory. Quota
// state is owned by the store and reachable only through ChargeDailyQuota,
// which must be atomic per user.
type Store interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, role Role) ([]User, error)
	Update(ctx context.Context, id int64, params UpdateParams) (User, error)
	Delete(ctx context.Context, id int64) (User, error)
	ChargeDailyQuota(ctx context.Context, id int64, limit int) error
}

type record struct {
	mu   sync.Mutex
	user User
}

// MemoryStore is an in-process Store. Directory membership is guarded by a
// read-write mutex; each record carries its own lock so quota charges for
// different users never contend.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[int64]*record
	nextID int64

	// Now is the wall clock used for the quota window. Tests pin it to avoid
	// day-boundary flakiness.
	Now func() time.Time
}

// NewMemoryStore constructs an empty in-memory directory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]*record), Now: time.Now}
}

// Create inserts a user, assigning the next free id.
func (s *MemoryStore) Create(_ context.Context, u User) (User, error) {
	email := normalizeEmail(u.Email)
	if email == "" {
		return User{}, errors.New("user: email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		rec.mu.Lock()
		existing := rec.user.Email
		rec.mu.Unlock()
		if normalizeEmail(existing) == email {
			return User{}, ErrEmailTaken
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.Email = email
	u.EmailsSent = 0
	u.LastEmailSentDate = ""
	s.users[u.ID] = &record{user: u}
	return u, nil
}

// GetByID returns the user with the given id.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (User, error) {
	s.mu.RLock()
	rec, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return User{}, ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.user, nil
}

// GetByEmail returns the user with the given email, case-insensitively.
func (s *MemoryStore) GetByEmail(_ context.Context, email string) (User, error) {
	needle := normalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.users {
		rec.mu.Lock()
		u := rec.user
		rec.mu.Unlock()
		if normalizeEmail(u.Email) == needle {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// List returns all users, optionally filtered by role, ordered by id.
func (s *MemoryStore) List(_ context.Context, role Role) ([]User, error) {
	s.mu.RLock()
	out := make([]User, 0, len(s.users))
	for _, rec := range s.users {
		rec.mu.Lock()
		u := rec.user
		rec.mu.Unlock()
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update applies the non-nil fields of params to the user record.
func (s *MemoryStore) Update(_ context.Context, id int64, params UpdateParams) (User, error) {
	s.mu.RLock()
	rec, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return User{}, ErrNotFound
	}
	if params.Email != nil {
		email := normalizeEmail(*params.Email)
		s.mu.RLock()
		for otherID, other := range s.users {
			if otherID == id {
				continue
			}
			// Email is mutated under the record lock, so it must be read
			// under the record lock too.
			other.mu.Lock()
			existing := other.user.Email
			other.mu.Unlock()
			if normalizeEmail(existing) == email {
				s.mu.RUnlock()
				return User{}, ErrEmailTaken
			}
		}
		s.mu.RUnlock()
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if params.FirstName != nil {
		rec.user.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		rec.user.LastName = *params.LastName
	}
	if params.Email != nil {
		rec.user.Email = normalizeEmail(*params.Email)
	}
	if params.Role != nil {
		rec.user.Role = *params.Role
	}
	return rec.user, nil
}

// Delete removes the user and returns the removed record.
func (s *MemoryStore) Delete(_ context.Context, id int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	rec.mu.Lock()
	u := rec.user
	rec.mu.Unlock()
	delete(s.users, id)
	return u, nil
}

// ChargeDailyQuota consumes one unit of the user's daily send quota. The day
// window rolls over on the UTC calendar date: a stale LastEmailSentDate resets
// the counter before the limit check, so a new day always grants a fresh
// window. At or over the limit the counter is left untouched and
// ErrQuotaExceeded is returned. The whole check-and-increment runs under the
// record's lock, so concurrent charges for the same user serialize.
func (s *MemoryStore) ChargeDailyQuota(_ context.Context, id int64, limit int) error {
	s.mu.RLock()
	rec, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	today := DateKey(s.now())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.user.LastEmailSentDate != today {
		rec.user.EmailsSent = 0
		rec.user.LastEmailSentDate = today
	}
	if rec.user.EmailsSent >= limit {
		return ErrQuotaExceeded
	}
	rec.user.EmailsSent++
	return nil
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
