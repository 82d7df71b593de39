package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultGeoURL IP geolocation endpoint reporting the caller's country.
	DefaultGeoURL = "https://ipapi.co/json/"

	defaultTimeout = 10 * time.Second
)

// ErrGeoUnavailable is returned when the geolocation lookup yields no usable answer.
var ErrGeoUnavailable = errors.New("geolocation unavailable")

// GeoLocation is the part of the geolocation answer used for locale detection.
type GeoLocation struct {
	CountryName string `json:"country_name"`
	CountryCode string `json:"country_code"`
}

// geoResponse represents the response structure of ipapi-compatible APIs
type geoResponse struct {
	GeoLocation
	IP     string `json:"ip"`
	City   string `json:"city"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// GeoClient looks up the country of the current public IP.
type GeoClient struct {
	apiURL     string
	httpClient *http.Client
}

// NewGeoClient creates a client for an ipapi-compatible endpoint.
func NewGeoClient(apiURL string, timeout time.Duration) *GeoClient {
	if apiURL == "" {
		apiURL = DefaultGeoURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GeoClient{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Lookup performs a single request; there are no retries.
func (c *GeoClient) Lookup(ctx context.Context) (GeoLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return GeoLocation{}, errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return GeoLocation{}, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return GeoLocation{}, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return GeoLocation{}, errors.Wrapf(ErrGeoUnavailable, "geolocation API returned status %d", resp.StatusCode)
	}

	var geoResp geoResponse
	if err := json.Unmarshal(body, &geoResp); err != nil {
		return GeoLocation{}, errors.Wrap(err, "failed to unmarshal response")
	}

	if geoResp.Error {
		return GeoLocation{}, errors.Wrap(ErrGeoUnavailable, fmt.Sprintf("geolocation API error: %s", geoResp.Reason))
	}

	if geoResp.CountryName == "" && geoResp.CountryCode == "" {
		return GeoLocation{}, errors.Wrap(ErrGeoUnavailable, "geolocation API returned no country")
	}

	return geoResp.GeoLocation, nil
}
