package geo

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunemap/internal/infra/config"
)

// NewLocatorFromConfig creates the configured location provider.
func NewLocatorFromConfig(cfg *config.Config) (Locator, error) {
	pcfg := cfg.Location.Provider
	zlog.Debug().Msgf("creating location provider: type=%s settings=%+v", pcfg.Type, pcfg.Settings)

	var locator Locator
	var err error
	switch pcfg.Type {
	case "static":
		locator, err = NewStaticLocator(pcfg.Settings)
	case "ipapi":
		locator, err = NewIPAPILocator(pcfg.Settings)
	default:
		return nil, errors.Newf("unsupported location provider type: %s", pcfg.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create location provider (type %s)", pcfg.Type)
	}

	zlog.Info().Msgf("registered location provider: type=%s", locator.Name())
	return locator, nil
}
