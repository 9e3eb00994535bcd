package models

import (
	"time"
)

// Классы устройств, которые различает аналитика.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

type Click struct {
	ID         int64     `json:"id"`
	LinkID     int64     `json:"link_id"`
	ClickedAt  time.Time `json:"clicked_at"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Referer    string    `json:"referer"`
	DeviceType string    `json:"device_type"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	Country    string    `json:"country"`
	City       string    `json:"city"`
}

// ClickEvent — сырое событие перехода, снятое с запроса редиректа.
// Обогащение (устройство, география) происходит в воркере, не в хендлере.
type ClickEvent struct {
	LinkID    int64
	IPAddress string
	UserAgent string
	Referer   string
}
