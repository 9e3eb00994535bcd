package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/SergeiKhy/shortlinks/internal/models"
	"github.com/SergeiKhy/shortlinks/internal/repository"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrInvalidURL = errors.New("invalid URL")
)

// Константы сервиса
const (
	defaultCacheTTL = 24 * time.Hour
	linkTTL         = 30 * 24 * time.Hour // срок жизни ссылки по умолчанию
	codeLength      = 6
	charset         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeRetries  = 5 // попыток генерации при коллизии кода
)

// LinkService интерфейс сервиса ссылок
type LinkService interface {
	CreateLink(ctx context.Context, userID int64, originalURL string) (*models.Link, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	ListByOwner(ctx context.Context, userID int64) ([]models.Link, error)
	DeleteLink(ctx context.Context, userID, linkID int64) error
}

type linkService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
}

// NewLinkService создаёт новый экземпляр сервиса
func NewLinkService(linkRepo repository.LinkRepository, cacheRepo repository.CacheRepository, logger *zap.Logger) LinkService {
	return &linkService{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		logger:    logger,
	}
}

// CreateLink создаёт новую короткую ссылку. Коллизия сгенерированного кода
// не видна вызывающему: сервис повторяет генерацию с новым кодом.
func (s *linkService) CreateLink(ctx context.Context, userID int64, originalURL string) (*models.Link, error) {
	if err := validateURL(originalURL); err != nil {
		return nil, err
	}

	now := time.Now()
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		code, err := generateShortCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		link := &models.Link{
			ShortCode:   code,
			OriginalURL: originalURL,
			UserID:      userID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(linkTTL),
		}

		if err := s.linkRepo.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrCodeExists) {
				s.logger.Debug("Short code collision, retrying",
					zap.String("code", code),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return nil, err
		}

		if err := s.cacheRepo.Set(ctx, link.ShortCode, link, cacheTTL(link)); err != nil {
			s.logger.Warn("Failed to cache link", zap.String("code", link.ShortCode), zap.Error(err))
		}

		return link, nil
	}

	return nil, fmt.Errorf("failed to create link after %d attempts: %w", maxCodeRetries, repository.ErrCodeExists)
}

// GetLink получает ссылку по короткому коду (сначала из кэша, затем из БД)
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.cacheRepo.Get(ctx, code)
	if err == nil {
		return link, nil
	}

	link, err = s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cacheRepo.Set(ctx, code, link, cacheTTL(link)); err != nil {
		s.logger.Warn("Failed to cache link", zap.String("code", code), zap.Error(err))
	}

	return link, nil
}

// ListByOwner возвращает ссылки пользователя в порядке создания
func (s *linkService) ListByOwner(ctx context.Context, userID int64) ([]models.Link, error) {
	return s.linkRepo.ListByOwner(ctx, userID)
}

// DeleteLink удаляет ссылку пользователя вместе с записью в кэше
func (s *linkService) DeleteLink(ctx context.Context, userID, linkID int64) error {
	link, err := s.linkRepo.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if link.UserID != userID {
		return repository.ErrLinkNotFound
	}

	if err := s.cacheRepo.Delete(ctx, link.ShortCode); err != nil {
		s.logger.Warn("Failed to drop cached link", zap.String("code", link.ShortCode), zap.Error(err))
	}

	return s.linkRepo.DeleteOwned(ctx, userID, linkID)
}

// cacheTTL ограничивает время жизни записи в кэше временем жизни самой ссылки
func cacheTTL(link *models.Link) time.Duration {
	ttl := defaultCacheTTL
	if until := time.Until(link.ExpiresAt); until < ttl {
		ttl = until
	}
	return ttl
}

// generateShortCode генерирует случайный короткий код длиной 6 символов
func generateShortCode() (string, error) {
	result := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// validateURL проверяет, что строка разбирается как абсолютный http(s) URL
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
