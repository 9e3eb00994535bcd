package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/shortlinks/internal/repository"
	"github.com/SergeiKhy/shortlinks/internal/service"
	"github.com/SergeiKhy/shortlinks/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestService создаёт тестовое окружение с моковыми репозиториями
func setupTestService() (service.LinkService, *mocks.MockLinkRepository, *mocks.MockCacheRepository) {
	linkRepo := mocks.NewMockLinkRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	logger := zap.NewNop()
	linkService := service.NewLinkService(linkRepo, cacheRepo, logger)
	return linkService, linkRepo, cacheRepo
}

// TestLinkService_CreateLink_Success проверяет успешное создание ссылки
func TestLinkService_CreateLink_Success(t *testing.T) {
	linkService, _, _ := setupTestService()

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, 1, "https://example.com/test")

	require.NoError(t, err)
	assert.Len(t, link.ShortCode, 6)
	assert.Equal(t, "https://example.com/test", link.OriginalURL)
	assert.Equal(t, int64(1), link.UserID)
	assert.Equal(t, int64(0), link.Clicks)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), link.ExpiresAt, time.Minute)
}

// TestLinkService_CreateLink_ResolvesBack проверяет, что созданный код
// резолвится обратно в тот же адрес
func TestLinkService_CreateLink_ResolvesBack(t *testing.T) {
	linkService, _, _ := setupTestService()

	ctx := context.Background()
	created, err := linkService.CreateLink(ctx, 1, "https://example.com/round-trip")
	require.NoError(t, err)

	resolved, err := linkService.GetLink(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, created.OriginalURL, resolved.OriginalURL)
}

// TestLinkService_CreateLink_InvalidURL проверяет отклонение невалидных URL
func TestLinkService_CreateLink_InvalidURL(t *testing.T) {
	linkService, _, _ := setupTestService()

	invalidURLs := []string{
		"not-a-url",
		"ftp://example.com",
		"",
		"example.com",
		"https://",
	}

	ctx := context.Background()
	for _, url := range invalidURLs {
		link, err := linkService.CreateLink(ctx, 1, url)
		assert.ErrorIs(t, err, service.ErrInvalidURL, "URL должен быть отклонён: %s", url)
		assert.Nil(t, link)
	}
}

// TestLinkService_CreateLink_ValidURLs проверяет принятие валидных URL
func TestLinkService_CreateLink_ValidURLs(t *testing.T) {
	linkService, _, _ := setupTestService()

	validURLs := []string{
		"https://example.com",
		"http://example.com/path",
		"https://sub.example.com/path?query=value",
	}

	ctx := context.Background()
	for _, url := range validURLs {
		link, err := linkService.CreateLink(ctx, 1, url)
		require.NoError(t, err, "URL должен быть принят: %s", url)
		assert.NotNil(t, link)
	}
}

// TestLinkService_CreateLink_CollisionRetry проверяет, что коллизия кода
// не видна вызывающему: сервис повторяет генерацию
func TestLinkService_CreateLink_CollisionRetry(t *testing.T) {
	linkService, linkRepo, _ := setupTestService()

	ctx := context.Background()
	// Занимаем много кодов, чтобы повысить шанс хотя бы одного повтора,
	// и убеждаемся, что создание всё равно успешно
	for i := 0; i < 200; i++ {
		link, err := linkService.CreateLink(ctx, 1, fmt.Sprintf("https://example.com/page/%d", i))
		require.NoError(t, err)
		require.NotNil(t, link)
	}

	links, err := linkRepo.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, links, 200)
}

// TestLinkService_CodeUniqueness проверяет уникальность кодов после
// конкурентного создания
func TestLinkService_CodeUniqueness(t *testing.T) {
	linkService, _, _ := setupTestService()

	ctx := context.Background()
	const n = 50
	results := make(chan string, n)

	for i := 0; i < n; i++ {
		go func(id int) {
			link, err := linkService.CreateLink(ctx, 1, fmt.Sprintf("https://example.com/c/%d", id))
			assert.NoError(t, err)
			results <- link.ShortCode
		}(i)
	}

	codes := make(map[string]bool)
	for i := 0; i < n; i++ {
		code := <-results
		assert.Len(t, code, 6)
		assert.False(t, codes[code], "коды не должны повторяться")
		codes[code] = true
	}
}

// TestLinkService_GetLink_FromCache проверяет получение ссылки из кэша
func TestLinkService_GetLink_FromCache(t *testing.T) {
	linkService, _, cacheRepo := setupTestService()

	ctx := context.Background()
	created, err := linkService.CreateLink(ctx, 1, "https://example.com/cached")
	require.NoError(t, err)

	cached, err := cacheRepo.Get(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, created.ShortCode, cached.ShortCode)

	resolved, err := linkService.GetLink(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, created.OriginalURL, resolved.OriginalURL)
}

// TestLinkService_GetLink_NotFound проверяет обработку несуществующего кода
func TestLinkService_GetLink_NotFound(t *testing.T) {
	linkService, _, _ := setupTestService()

	ctx := context.Background()
	link, err := linkService.GetLink(ctx, "nonexistent")

	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	assert.Nil(t, link)
}

// TestLinkService_GetLink_CaseSensitive проверяет, что поиск кода
// чувствителен к регистру
func TestLinkService_GetLink_CaseSensitive(t *testing.T) {
	linkService, linkRepo, _ := setupTestService()

	ctx := context.Background()
	created, err := linkService.CreateLink(ctx, 1, "https://example.com/case")
	require.NoError(t, err)

	_, err = linkRepo.GetByShortCode(ctx, flipCase(created.ShortCode))
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

// TestLinkService_ListByOwner проверяет выдачу ссылок владельца в порядке создания
func TestLinkService_ListByOwner(t *testing.T) {
	linkService, _, _ := setupTestService()

	ctx := context.Background()
	first, err := linkService.CreateLink(ctx, 1, "https://example.com/first")
	require.NoError(t, err)
	second, err := linkService.CreateLink(ctx, 1, "https://example.com/second")
	require.NoError(t, err)
	_, err = linkService.CreateLink(ctx, 2, "https://example.com/other-user")
	require.NoError(t, err)

	links, err := linkService.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, first.ShortCode, links[0].ShortCode)
	assert.Equal(t, second.ShortCode, links[1].ShortCode)
}

// TestLinkService_DeleteLink проверяет удаление своей ссылки и отказ на чужой
func TestLinkService_DeleteLink(t *testing.T) {
	linkService, _, cacheRepo := setupTestService()

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, 1, "https://example.com/to-delete")
	require.NoError(t, err)

	// Чужой пользователь не может удалить
	err = linkService.DeleteLink(ctx, 2, link.ID)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	// Владелец удаляет, кэш сбрасывается
	err = linkService.DeleteLink(ctx, 1, link.ID)
	require.NoError(t, err)

	_, err = cacheRepo.Get(ctx, link.ShortCode)
	assert.Error(t, err)

	_, err = linkService.GetLink(ctx, link.ShortCode)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

// flipCase инвертирует регистр первой буквы кода (для проверки чувствительности)
func flipCase(code string) string {
	b := []byte(code)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - 'a' + 'A'
			return string(b)
		case c >= 'A' && c <= 'Z':
			b[i] = c - 'A' + 'a'
			return string(b)
		}
	}
	// Код из одних цифр: добавляем заведомо другой суффикс
	return string(b) + "x"
}
