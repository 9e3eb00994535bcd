package maintenance

import (
	"context"
	"time"

	"github.com/SergeiKhy/shortlinks/internal/repository"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Ежедневно в 03:00; истёкшие ссылки и так невидимы для чтения,
// sweep лишь убирает мёртвые строки
const sweepSchedule = "0 3 * * *"

const sweepTimeout = time.Minute

// Sweeper удаляет истёкшие ссылки из базы и инвалидирует их записи в кэше
type Sweeper struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	cron      *cron.Cron
	logger    *zap.Logger
}

func NewSweeper(linkRepo repository.LinkRepository, cacheRepo repository.CacheRepository, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start регистрирует расписание и запускает планировщик
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(sweepSchedule, s.runSweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Планировщик очистки запущен", zap.String("schedule", sweepSchedule))
	return nil
}

// Stop останавливает планировщик и дожидается завершения текущего прохода
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Планировщик очистки остановлен")
}

func (s *Sweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("Очистка истёкших ссылок завершилась ошибкой", zap.Error(err))
	}
}

// Sweep выполняет один проход очистки
func (s *Sweeper) Sweep(ctx context.Context) error {
	codes, err := s.linkRepo.DeleteExpired(ctx)
	if err != nil {
		return err
	}

	for _, code := range codes {
		// Инвалидация кэша best-effort: запись и так истечёт по TTL
		if err := s.cacheRepo.Delete(ctx, code); err != nil {
			s.logger.Warn("Не удалось удалить ссылку из кэша",
				zap.String("code", code),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Очистка истёкших ссылок завершена", zap.Int("removed", len(codes)))
	return nil
}
