package service

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/shortlinks/internal/lookup"
	"github.com/SergeiKhy/shortlinks/internal/models"
	"github.com/SergeiKhy/shortlinks/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultWorkerCount   = 3
	defaultChannelBuffer = 1000
	processTimeout       = 5 * time.Second // верхняя граница обработки одного клика
)

// ClickProcessor асинхронно фиксирует переходы по коротким ссылкам.
// Регистрация события неблокирующая: редирект никогда не ждёт записи,
// а ошибки обработки не поднимаются наружу.
type ClickProcessor interface {
	Start()
	Stop()
	Enqueue(ctx context.Context, event *models.ClickEvent) error
}

// clickProcessor реализация на worker pool с буферизованным каналом
type clickProcessor struct {
	clickRepo    repository.ClickRepository
	linkRepo     repository.LinkRepository
	locator      lookup.Locator
	logger       *zap.Logger
	clickChannel chan *models.ClickEvent
	workerCount  int
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// ProcessorOption настраивает процессор кликов
type ProcessorOption func(*clickProcessor)

// WithWorkers задаёт количество воркеров
func WithWorkers(n int) ProcessorOption {
	return func(p *clickProcessor) {
		if n > 0 {
			p.workerCount = n
		}
	}
}

// WithBuffer задаёт размер буфера канала
func WithBuffer(n int) ProcessorOption {
	return func(p *clickProcessor) {
		if n > 0 {
			p.clickChannel = make(chan *models.ClickEvent, n)
		}
	}
}

// NewClickProcessor создаёт новый экземпляр процессора кликов
func NewClickProcessor(
	clickRepo repository.ClickRepository,
	linkRepo repository.LinkRepository,
	locator lookup.Locator,
	logger *zap.Logger,
	opts ...ProcessorOption,
) ClickProcessor {
	p := &clickProcessor{
		clickRepo:    clickRepo,
		linkRepo:     linkRepo,
		locator:      locator,
		logger:       logger,
		clickChannel: make(chan *models.ClickEvent, defaultChannelBuffer),
		workerCount:  defaultWorkerCount,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop корректно останавливает worker pool. События, оставшиеся в буфере,
// теряются — допустимая потеря при остановке процесса.
func (p *clickProcessor) Stop() {
	p.logger.Info("Остановка процессора кликов...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Процессор кликов остановлен")
}

// Enqueue отправляет событие клика в worker pool (неблокирующая операция).
// При заполненном буфере событие отбрасывается, запрос не задерживается.
func (p *clickProcessor) Enqueue(ctx context.Context, event *models.ClickEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- event:
		return nil
	default:
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно",
			zap.Int64("link_id", event.LinkID),
		)
		return nil
	}
}

// worker обрабатывает события кликов из канала
func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
			return

		case event, ok := <-p.clickChannel:
			if !ok {
				return
			}
			p.processClick(event)
		}
	}
}

// processClick обогащает и записывает одно событие. Одна попытка с таймаутом:
// повтор при сбое дал бы дублированную атрибуцию клика, поэтому при ошибке
// событие логируется и отбрасывается.
func (p *clickProcessor) processClick(event *models.ClickEvent) {
	ctx, cancel := context.WithTimeout(p.ctx, processTimeout)
	defer cancel()

	device := lookup.ParseUserAgent(event.UserAgent)

	click := &models.Click{
		LinkID:     event.LinkID,
		ClickedAt:  time.Now(),
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
		Referer:    event.Referer,
		DeviceType: device.DeviceType,
		Browser:    device.Browser,
		OS:         device.OS,
	}

	// География — best-effort: отказ внешнего сервиса оставляет поля пустыми
	if p.locator != nil {
		loc, err := p.locator.Lookup(ctx, event.IPAddress)
		if err != nil {
			p.logger.Debug("Geo lookup failed",
				zap.String("ip", event.IPAddress),
				zap.Error(err),
			)
		} else if loc != nil {
			click.Country = loc.Country
			click.City = loc.City
		}
	}

	if err := p.clickRepo.RecordClick(ctx, click); err != nil {
		p.logger.Error("Не удалось записать клик",
			zap.Int64("link_id", event.LinkID),
			zap.Error(err),
		)
		return
	}

	if err := p.linkRepo.IncrementClicks(ctx, event.LinkID); err != nil {
		p.logger.Error("Не удалось увеличить счётчик кликов",
			zap.Int64("link_id", event.LinkID),
			zap.Error(err),
		)
	}
}
