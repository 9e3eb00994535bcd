package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/shortlinks/internal/lookup"
	"github.com/SergeiKhy/shortlinks/internal/models"
	"github.com/SergeiKhy/shortlinks/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	mu     sync.RWMutex
	links  map[int64]*models.Link
	byCode map[string]int64
	nextID int64

	// FailIncrement заставляет IncrementClicks возвращать ошибку
	FailIncrement bool
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:  make(map[int64]*models.Link),
		byCode: make(map[string]int64),
		nextID: 1,
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	link.ID = m.nextID
	m.nextID++
	stored := *link
	m.links[link.ID] = &stored
	m.byCode[link.ShortCode] = link.ID
	return nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byCode[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	link := m.links[id]
	if !link.ExpiresAt.IsZero() && !link.ExpiresAt.After(time.Now()) {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[id]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, userID int64) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Link
	for id := int64(1); id < m.nextID; id++ {
		if link, ok := m.links[id]; ok && link.UserID == userID {
			result = append(result, *link)
		}
	}
	return result, nil
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, linkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailIncrement {
		return repository.ErrLinkNotFound
	}

	link, exists := m.links[linkID]
	if !exists {
		return repository.ErrLinkNotFound
	}
	link.Clicks++
	return nil
}

func (m *MockLinkRepository) DeleteOwned(ctx context.Context, userID, linkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[linkID]
	if !exists || link.UserID != userID {
		return repository.ErrLinkNotFound
	}
	delete(m.byCode, link.ShortCode)
	delete(m.links, linkID)
	return nil
}

func (m *MockLinkRepository) DeleteExpired(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var codes []string
	for id, link := range m.links {
		if !link.ExpiresAt.After(time.Now()) {
			codes = append(codes, link.ShortCode)
			delete(m.byCode, link.ShortCode)
			delete(m.links, id)
		}
	}
	return codes, nil
}

// Clicks возвращает текущее значение счётчика
func (m *MockLinkRepository) Clicks(linkID int64) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if link, ok := m.links[linkID]; ok {
		return link.Clicks
	}
	return 0
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.Link
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.cache[key]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = link
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// MockClickRepository implements repository.ClickRepository for testing
type MockClickRepository struct {
	mu     sync.RWMutex
	clicks map[int64][]models.Click
	nextID int64

	// RecordDelay замедляет RecordClick (имитация медленного хранилища)
	RecordDelay time.Duration
	// FailRecord заставляет RecordClick возвращать ошибку
	FailRecord bool
}

func NewMockClickRepository() *MockClickRepository {
	return &MockClickRepository{
		clicks: make(map[int64][]models.Click),
		nextID: 1,
	}
}

func (m *MockClickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	if m.RecordDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.RecordDelay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRecord {
		return errors.New("record failed")
	}

	click.ID = m.nextID
	m.nextID++
	m.clicks[click.LinkID] = append(m.clicks[click.LinkID], *click)
	return nil
}

func (m *MockClickRepository) ListByLinkSince(ctx context.Context, linkID int64, since time.Time) ([]models.Click, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Click
	for _, click := range m.clicks[linkID] {
		if since.IsZero() || !click.ClickedAt.Before(since) {
			result = append(result, click)
		}
	}
	return result, nil
}

// Add кладёт готовый клик напрямую (для тестов агрегации)
func (m *MockClickRepository) Add(click models.Click) {
	m.mu.Lock()
	defer m.mu.Unlock()
	click.ID = m.nextID
	m.nextID++
	m.clicks[click.LinkID] = append(m.clicks[click.LinkID], click)
}

// Count возвращает число записанных кликов по ссылке
func (m *MockClickRepository) Count(linkID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clicks[linkID])
}

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mu      sync.RWMutex
	users   map[int64]*models.User
	byEmail map[string]int64
	nextID  int64
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:   make(map[int64]*models.User),
		byEmail: make(map[string]int64),
		nextID:  1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[user.Email]; exists {
		return repository.ErrEmailExists
	}

	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byEmail[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	copied := *m.users[id]
	return &copied, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// StaticLocator implements lookup.Locator with a fixed answer
type StaticLocator struct {
	Location *lookup.Location
	Err      error
}

func (l *StaticLocator) Lookup(ctx context.Context, ip string) (*lookup.Location, error) {
	return l.Location, l.Err
}
