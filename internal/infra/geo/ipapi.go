package geo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunemap/internal/domain/user"
)

type IPAPILocatorConfig struct {
	URL string `yaml:"url" mapstructure:"url" default:"http://ip-api.com/json" validate:"required,url"`
}

// IPAPILocator resolves the public IP address to a coordinate through a JSON
// geolocation endpoint. Both ip-api.com ("lat"/"lon") and ipapi.co
// ("latitude"/"longitude") response shapes are accepted.
type IPAPILocator struct {
	config     *IPAPILocatorConfig
	httpClient *http.Client
}

type ipapiResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NewIPAPILocator creates a new IPAPILocator.
func NewIPAPILocator(settings map[string]any) (*IPAPILocator, error) {
	var config IPAPILocatorConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("ipapi locator config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &IPAPILocator{
		config:     &config,
		httpClient: &http.Client{},
	}, nil
}

// Locate queries the endpoint. The deadline comes from ctx.
func (l *IPAPILocator) Locate(ctx context.Context) (user.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.URL, nil)
	if err != nil {
		return user.Location{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return user.Location{}, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return user.Location{}, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return user.Location{}, errors.Newf("geolocation API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ipapiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return user.Location{}, errors.Wrap(err, "failed to parse response")
	}
	if result.Status == "fail" {
		return user.Location{}, errors.Newf("geolocation lookup failed: %s", result.Message)
	}
	if result.Error {
		return user.Location{}, errors.Newf("geolocation lookup failed: %s", result.Reason)
	}

	switch {
	case result.Lat != nil && result.Lon != nil:
		return user.Location{Latitude: *result.Lat, Longitude: *result.Lon}, nil
	case result.Latitude != nil && result.Longitude != nil:
		return user.Location{Latitude: *result.Latitude, Longitude: *result.Longitude}, nil
	default:
		return user.Location{}, errors.New("geolocation response has no coordinate")
	}
}

// Name returns the provider name.
func (l *IPAPILocator) Name() string {
	return "ipapi"
}
