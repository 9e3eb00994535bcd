package lookup

import (
	"github.com/SergeiKhy/shortlinks/internal/models"
	"github.com/mileusna/useragent"
)

// DeviceInfo — результат разбора строки User-Agent.
type DeviceInfo struct {
	DeviceType string
	Browser    string
	OS         string
}

// ParseUserAgent классифицирует клиента по строке User-Agent.
// Если парсер не сообщил явный тип устройства, клиент считается desktop —
// это осознанная политика по умолчанию: боты без явных маркеров устройства
// тоже попадают в desktop.
func ParseUserAgent(raw string) DeviceInfo {
	ua := useragent.Parse(raw)

	info := DeviceInfo{
		Browser: ua.Name,
		OS:      ua.OS,
	}

	switch {
	case ua.Mobile:
		info.DeviceType = models.DeviceMobile
	case ua.Tablet:
		info.DeviceType = models.DeviceTablet
	case ua.Bot:
		info.DeviceType = models.DeviceBot
	default:
		info.DeviceType = models.DeviceDesktop
	}

	return info
}
