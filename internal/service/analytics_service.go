package service

import (
	"context"
	"sort"
	"time"

	"github.com/SergeiKhy/shortlinks/internal/models"
	"github.com/SergeiKhy/shortlinks/internal/repository"
)

// Именованные окна выборки
const (
	RangeDay   = "1d"
	RangeWeek  = "7d"
	RangeMonth = "30d"
	RangeAll   = "all"
)

// Пустое имя браузера группируется под этим значением
const unknownBrowser = "unknown"

// AnalyticsService строит агрегированную статистику переходов по ссылке
type AnalyticsService interface {
	Report(ctx context.Context, userID, linkID int64, rng string) (*models.AnalyticsReport, error)
}

type analyticsService struct {
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
}

// NewAnalyticsService создаёт новый экземпляр сервиса аналитики
func NewAnalyticsService(linkRepo repository.LinkRepository, clickRepo repository.ClickRepository) AnalyticsService {
	return &analyticsService{
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
	}
}

// Report загружает клики за окно и собирает четыре разреза: по дням,
// устройствам, браузерам и локациям. Неизвестная или чужая ссылка —
// ошибка ErrLinkNotFound, а не пустой отчёт.
func (s *analyticsService) Report(ctx context.Context, userID, linkID int64, rng string) (*models.AnalyticsReport, error) {
	link, err := s.linkRepo.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.UserID != userID {
		return nil, repository.ErrLinkNotFound
	}

	clicks, err := s.clickRepo.ListByLinkSince(ctx, linkID, s.cutoff(rng))
	if err != nil {
		return nil, err
	}

	report := &models.AnalyticsReport{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		Range:       rng,
		TotalClicks: int64(len(clicks)),
		Daily:       groupDaily(clicks),
		Devices:     groupDevices(clicks),
		Browsers:    groupBrowsers(clicks),
		Locations:   groupLocations(clicks),
	}

	return report, nil
}

// cutoff вычисляет нижнюю границу окна. Любое значение за пределами
// именованных окон означает выборку без ограничения.
func (s *analyticsService) cutoff(rng string) time.Time {
	switch rng {
	case RangeDay:
		return time.Now().Add(-24 * time.Hour)
	case RangeWeek:
		return time.Now().Add(-7 * 24 * time.Hour)
	case RangeMonth:
		return time.Now().Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// groupDaily группирует клики по календарной дате (UTC)
func groupDaily(clicks []models.Click) []models.DailyCount {
	counts := make(map[string]int64)
	for _, c := range clicks {
		date := c.ClickedAt.UTC().Format("2006-01-02")
		counts[date]++
	}

	result := make([]models.DailyCount, 0, len(counts))
	for date, n := range counts {
		result = append(result, models.DailyCount{Date: date, Clicks: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}

// groupDevices группирует клики по классу устройства
func groupDevices(clicks []models.Click) []models.DeviceCount {
	counts := make(map[string]int64)
	for _, c := range clicks {
		device := c.DeviceType
		if device == "" {
			device = models.DeviceUnknown
		}
		counts[device]++
	}

	result := make([]models.DeviceCount, 0, len(counts))
	for device, n := range counts {
		result = append(result, models.DeviceCount{Device: device, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return result
}

// groupBrowsers группирует клики по имени браузера; пустое имя — unknown
func groupBrowsers(clicks []models.Click) []models.BrowserCount {
	counts := make(map[string]int64)
	for _, c := range clicks {
		browser := c.Browser
		if browser == "" {
			browser = unknownBrowser
		}
		counts[browser]++
	}

	result := make([]models.BrowserCount, 0, len(counts))
	for browser, n := range counts {
		result = append(result, models.BrowserCount{Browser: browser, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return result
}

// groupLocations группирует по "City, CC", либо по одной стране, если город
// неизвестен. Клики без страны в этот разрез не попадают вовсе.
func groupLocations(clicks []models.Click) []models.LocationCount {
	counts := make(map[string]int64)
	for _, c := range clicks {
		if c.Country == "" {
			continue
		}
		location := c.Country
		if c.City != "" {
			location = c.City + ", " + c.Country
		}
		counts[location]++
	}

	result := make([]models.LocationCount, 0, len(counts))
	for location, n := range counts {
		result = append(result, models.LocationCount{Location: location, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return result
}
