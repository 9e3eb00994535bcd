package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Location — страна (ISO-код) и, если известен, город клиента.
type Location struct {
	Country string
	City    string
}

// Locator резолвит сетевой адрес в географию. Возвращает nil без ошибки,
// если адрес нерезолвируем (приватный, loopback, неизвестный).
type Locator interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// GeoClient резолвит адреса через HTTP-сервис ip-api.com.
type GeoClient struct {
	baseURL string
	client  *http.Client
}

func NewGeoClient(baseURL string, timeout time.Duration) *GeoClient {
	return &GeoClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GeoClient) Lookup(ctx context.Context, ip string) (*Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/json/"+ip, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup status %d", resp.StatusCode)
	}

	var data struct {
		Status      string `json:"status"`
		CountryCode string `json:"countryCode"`
		City        string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}

	if data.Status != "success" || data.CountryCode == "" {
		return nil, nil
	}

	return &Location{Country: data.CountryCode, City: data.City}, nil
}
