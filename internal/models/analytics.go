package models

import (
	"time"
)

// AnalyticsReport — агрегированная статистика переходов по одной ссылке
// за выбранное окно времени.
type AnalyticsReport struct {
	ShortCode   string          `json:"short_code"`
	OriginalURL string          `json:"original_url"`
	CreatedAt   time.Time       `json:"created_at"`
	Range       string          `json:"range"`
	TotalClicks int64           `json:"total_clicks"`
	Daily       []DailyCount    `json:"daily"`
	Devices     []DeviceCount   `json:"devices"`
	Browsers    []BrowserCount  `json:"browsers"`
	Locations   []LocationCount `json:"locations"`
}

type DailyCount struct {
	Date   string `json:"date"` // календарная дата в UTC, формат 2006-01-02
	Clicks int64  `json:"clicks"`
}

type DeviceCount struct {
	Device string `json:"device"`
	Count  int64  `json:"count"`
}

type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

type LocationCount struct {
	Location string `json:"location"` // "City, CC" либо только "CC"
	Count    int64  `json:"count"`
}
