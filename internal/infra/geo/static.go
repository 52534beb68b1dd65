package geo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunemap/internal/domain/user"
)

type StaticLocatorConfig struct {
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude" validate:"gte=-180,lte=180"`
}

// StaticLocator always reports a configured coordinate.
type StaticLocator struct {
	config *StaticLocatorConfig
}

// NewStaticLocator creates a new StaticLocator.
func NewStaticLocator(settings map[string]any) (*StaticLocator, error) {
	var config StaticLocatorConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("static locator config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &StaticLocator{config: &config}, nil
}

// Locate returns the configured coordinate.
func (l *StaticLocator) Locate(ctx context.Context) (user.Location, error) {
	if err := ctx.Err(); err != nil {
		return user.Location{}, err
	}
	return user.Location{Latitude: l.config.Latitude, Longitude: l.config.Longitude}, nil
}

// Name returns the provider name.
func (l *StaticLocator) Name() string {
	return "static"
}
