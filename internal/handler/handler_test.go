package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SergeiKhy/shortlinks/internal/auth"
	"github.com/SergeiKhy/shortlinks/internal/handler"
	"github.com/SergeiKhy/shortlinks/internal/middleware"
	"github.com/SergeiKhy/shortlinks/internal/models"
	"github.com/SergeiKhy/shortlinks/internal/service"
	"github.com/SergeiKhy/shortlinks/internal/service/mocks"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	router    *gin.Engine
	linkRepo  *mocks.MockLinkRepository
	clickRepo *mocks.MockClickRepository
	userRepo  *mocks.MockUserRepository
	tokens    *auth.TokenManager
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	linkRepo := mocks.NewMockLinkRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	clickRepo := mocks.NewMockClickRepository()
	userRepo := mocks.NewMockUserRepository()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	linkService := service.NewLinkService(linkRepo, cacheRepo, logger)
	authService := service.NewAuthService(userRepo, tokens)
	analyticsService := service.NewAnalyticsService(linkRepo, clickRepo)

	processor := service.NewClickProcessor(clickRepo, linkRepo, nil, logger, service.WithWorkers(2))
	processor.Start()
	t.Cleanup(processor.Stop)

	// Лимит заведомо выше нагрузки тестов
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		CleanupInterval:   time.Minute,
	})

	router := handler.NewRouter(
		linkService, processor, analyticsService, authService,
		tokens, userRepo, rateLimiter, "http://sho.rt/", logger,
	)

	return &testEnv{
		router:    router,
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		userRepo:  userRepo,
		tokens:    tokens,
	}
}

// signup регистрирует пользователя через HTTP и возвращает его токен
func (e *testEnv) signup(t *testing.T, email string) (int64, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": "secret123"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

func (e *testEnv) createLink(t *testing.T, token, url string) handler.LinkResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"url": url})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp handler.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSignupAndLogin(t *testing.T) {
	env := setupEnv(t)

	_, token := env.signup(t, "user@example.com")
	assert.NotEmpty(t, token)

	body, _ := json.Marshal(map[string]string{"email": "user@example.com", "password": "secret123"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Неверный пароль
	body, _ = json.Marshal(map[string]string{"email": "user@example.com", "password": "wrong"})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := setupEnv(t)
	env.signup(t, "user@example.com")

	body, _ := json.Marshal(map[string]string{"email": "user@example.com", "password": "another"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateLink(t *testing.T) {
	env := setupEnv(t)
	_, token := env.signup(t, "user@example.com")

	resp := env.createLink(t, token, "https://example.com/page")
	assert.Len(t, resp.ShortCode, 6)
	assert.Equal(t, "http://sho.rt/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, "https://example.com/page", resp.OriginalURL)
}

func TestCreateLink_InvalidURL(t *testing.T) {
	env := setupEnv(t)
	_, token := env.signup(t, "user@example.com")

	body, _ := json.Marshal(map[string]string{"url": "not-a-url"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateLink_RequiresAuth(t *testing.T) {
	env := setupEnv(t)

	body, _ := json.Marshal(map[string]string{"url": "https://example.com"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListLinks_OnlyOwn(t *testing.T) {
	env := setupEnv(t)
	_, token1 := env.signup(t, "first@example.com")
	_, token2 := env.signup(t, "second@example.com")

	env.createLink(t, token1, "https://example.com/a")
	env.createLink(t, token1, "https://example.com/b")
	env.createLink(t, token2, "https://example.com/c")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	req.Header.Set("Authorization", "Bearer "+token1)
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var links []handler.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	require.Len(t, links, 2)
	assert.Equal(t, "https://example.com/a", links[0].OriginalURL)
	assert.Equal(t, "https://example.com/b", links[1].OriginalURL)
}

func TestDeleteLink(t *testing.T) {
	env := setupEnv(t)
	_, token := env.signup(t, "user@example.com")
	link := env.createLink(t, token, "https://example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/links/%d", link.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Редирект по удалённому коду
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/"+link.ShortCode, nil)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteLink_Foreign(t *testing.T) {
	env := setupEnv(t)
	_, owner := env.signup(t, "owner@example.com")
	_, other := env.signup(t, "other@example.com")
	link := env.createLink(t, owner, "https://example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/links/%d", link.ID), nil)
	req.Header.Set("Authorization", "Bearer "+other)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirect(t *testing.T) {
	env := setupEnv(t)
	_, token := env.signup(t, "user@example.com")
	link := env.createLink(t, token, "https://example.com/target")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/"+link.ShortCode, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/target", w.Header().Get("Location"))

	// Клик фиксируется асинхронно
	require.Eventually(t, func() bool {
		return env.clickRepo.Count(link.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), env.linkRepo.Clicks(link.ID))
}

func TestRedirect_UnknownCode(t *testing.T) {
	env := setupEnv(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nosuch", nil)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRedirect_NotDelayedBySlowRecorder проверяет, что медленная запись
// кликов не задерживает сам редирект
func TestRedirect_NotDelayedBySlowRecorder(t *testing.T) {
	env := setupEnv(t)
	_, token := env.signup(t, "user@example.com")
	link := env.createLink(t, token, "https://example.com")

	env.clickRepo.RecordDelay = 2 * time.Second

	start := time.Now()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/"+link.ShortCode, nil)
	env.router.ServeHTTP(w, req)
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Less(t, elapsed, 200*time.Millisecond, "редирект не должен ждать записи клика")
}

func TestAnalyticsEndpoint(t *testing.T) {
	env := setupEnv(t)
	_, token := env.signup(t, "user@example.com")
	link := env.createLink(t, token, "https://example.com")

	env.clickRepo.Add(models.Click{
		LinkID:     link.ID,
		ClickedAt:  time.Now(),
		DeviceType: models.DeviceMobile,
		Browser:    "Safari",
		Country:    "FR",
		City:       "Paris",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/analytics/%d?range=7d", link.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var report models.AnalyticsReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, link.ShortCode, report.ShortCode)
	assert.Equal(t, int64(1), report.TotalClicks)
	require.Len(t, report.Locations, 1)
	assert.Equal(t, "Paris, FR", report.Locations[0].Location)
}

func TestAnalyticsEndpoint_ForeignLink(t *testing.T) {
	env := setupEnv(t)
	_, owner := env.signup(t, "owner@example.com")
	_, other := env.signup(t, "other@example.com")
	link := env.createLink(t, owner, "https://example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/analytics/%d", link.ID), nil)
	req.Header.Set("Authorization", "Bearer "+other)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	env := setupEnv(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
