package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/avolhov/recovery-server/internal/model"
)

// memTokenStore is an in-memory TokenStore with real expiry filtering, so
// lifecycle tests can exercise TTL boundaries and consumption semantics.
type memTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]model.Token

	createErr error
	deleteErr error
	listErr   error
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[uuid.UUID]model.Token)}
}

func (s *memTokenStore) Create(ctx context.Context, token model.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.tokens[token.ID] = token
	return nil
}

func (s *memTokenStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for id, token := range s.tokens {
		if token.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}

func (s *memTokenStore) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return false, s.deleteErr
	}
	if _, ok := s.tokens[id]; !ok {
		return false, nil
	}
	delete(s.tokens, id)
	return true, nil
}

func (s *memTokenStore) ListActive(ctx context.Context, now time.Time) ([]model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var active []model.Token
	for _, token := range s.tokens {
		if token.ExpiresAt.After(now) {
			active = append(active, token)
		}
	}
	return active, nil
}

func (s *memTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, token := range s.tokens {
		if !token.ExpiresAt.After(now) {
			delete(s.tokens, id)
			count++
		}
	}
	return count, nil
}

func (s *memTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// memSettingStore is an in-memory SettingStore so settings tests can observe
// the stored (possibly ciphertext) values.
type memSettingStore struct {
	mu   sync.Mutex
	rows map[string]model.Setting
}

func newMemSettingStore() *memSettingStore {
	return &memSettingStore{rows: make(map[string]model.Setting)}
}

func (s *memSettingStore) GetByKey(ctx context.Context, key string) (model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok {
		return model.Setting{}, model.ErrNotFound
	}
	return row, nil
}

func (s *memSettingStore) GetAll(ctx context.Context) ([]model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.Setting, 0, len(s.rows))
	for _, row := range s.rows {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	return all, nil
}

func (s *memSettingStore) Upsert(ctx context.Context, setting model.Setting) (model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.rows[setting.Key]; ok {
		setting.CreatedAt = existing.CreatedAt
	} else {
		setting.CreatedAt = now
	}
	setting.UpdatedAt = now
	s.rows[setting.Key] = setting
	return setting, nil
}

func (s *memSettingStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key]; !ok {
		return false, nil
	}
	delete(s.rows, key)
	return true, nil
}

func (s *memSettingStore) Search(ctx context.Context, substr string) ([]model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []model.Setting
	for key, row := range s.rows {
		if strings.Contains(key, substr) {
			matches = append(matches, row)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })
	return matches, nil
}

func (s *memSettingStore) GetByGroup(ctx context.Context, groupID string) ([]model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []model.Setting
	for _, row := range s.rows {
		if row.GroupID != nil && *row.GroupID == groupID {
			matches = append(matches, row)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })
	return matches, nil
}

func (s *memSettingStore) GetGroups(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var groups []string
	for _, row := range s.rows {
		if row.GroupID != nil && !seen[*row.GroupID] {
			seen[*row.GroupID] = true
			groups = append(groups, *row.GroupID)
		}
	}
	sort.Strings(groups)
	return groups, nil
}

func (s *memSettingStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[key]
	return ok, nil
}

// raw returns the stored row without any decryption, as a direct consumer of
// the table would see it.
func (s *memSettingStore) raw(key string) (model.Setting, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	return row, ok
}

// MockUserStore mocks the UserStore interface.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByEmailAndAuthMethod(ctx context.Context, email, authMethod string) (model.User, error) {
	args := m.Called(ctx, email, authMethod)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockSessionStore mocks the SessionStore interface.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, session model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) DeleteAllByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSessionStore) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotifier mocks the Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, notification model.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}
