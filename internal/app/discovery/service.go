// Package discovery locates the device and finds nearby users and their tracks.
package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunemap/internal/app/filter"
	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/domain/user"
	"github.com/osa030/tunemap/internal/infra/geo"
)

// DefaultTimeout bounds a location lookup when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// DefaultLocation is used when the device cannot be located.
var DefaultLocation = user.Location{Latitude: 51.505, Longitude: -0.09}

// Backend is the subset of the REST client used by discovery.
type Backend interface {
	NearbyUsers(ctx context.Context, loc user.Location, radiusKm float64) ([]*user.User, error)
	UpdateLocation(ctx context.Context, loc user.Location) (*user.User, error)
}

// Config represents discovery configuration.
type Config struct {
	Timeout         time.Duration
	Default         *user.Location // nil uses DefaultLocation
	RadiusKm        float64
	Genres          []string
	FallbackMessage string
}

// Located is the outcome of a location lookup.
type Located struct {
	Location user.Location
	Warning  string // set when the default coordinate was used
}

// Discovery is the outcome of a full discovery pass.
type Discovery struct {
	Located
	Users  []*user.User
	Tracks []track.Track
}

// Service runs location lookup and nearby discovery.
type Service struct {
	locator geo.Locator
	config  Config
}

// New creates a new discovery service.
func New(locator geo.Locator, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Default == nil {
		def := DefaultLocation
		cfg.Default = &def
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = "Unable to get your location. Using default location."
	}
	return &Service{locator: locator, config: cfg}
}

type locateResult struct {
	loc user.Location
	err error
}

// Locate returns the device location, or the default coordinate with a
// warning when the lookup fails or does not finish within the timeout.
func (s *Service) Locate(ctx context.Context) Located {
	lctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	// The locator may ignore ctx, so the deadline is enforced here.
	resultCh := make(chan locateResult, 1)
	go func() {
		loc, err := s.locator.Locate(lctx)
		resultCh <- locateResult{loc: loc, err: err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			zlog.Warn().Msgf("location lookup failed, using default location: provider=%s error=%v", s.locator.Name(), r.err)
			return s.fallback()
		}
		zlog.Debug().Msgf("got location %s from %s", r.loc, s.locator.Name())
		r.loc.Fallback = false
		return Located{Location: r.loc}
	case <-lctx.Done():
		zlog.Warn().Msgf("location lookup timed out after %s, using default location", s.config.Timeout)
		return s.fallback()
	}
}

func (s *Service) fallback() Located {
	loc := *s.config.Default
	loc.Fallback = true
	return Located{Location: loc, Warning: s.config.FallbackMessage}
}

// Publish stores a real location on the backend. Failures are logged only.
// Fallback coordinates are never published.
func (s *Service) Publish(ctx context.Context, b Backend, loc user.Location) {
	if loc.Fallback {
		return
	}
	if _, err := b.UpdateLocation(ctx, loc); err != nil {
		zlog.Error().Err(err).Msg("failed to update location")
	}
}

// Nearby fetches users around loc, nearest first. Users without a
// position are kept at the end.
func (s *Service) Nearby(ctx context.Context, b Backend, loc user.Location) ([]*user.User, error) {
	users, err := b.NearbyUsers(ctx, loc, s.config.RadiusKm)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch nearby users")
	}

	sort.SliceStable(users, func(i, j int) bool {
		ui, uj := users[i], users[j]
		if !ui.HasLocation() || !uj.HasLocation() {
			return ui.HasLocation() && !uj.HasLocation()
		}
		return loc.DistanceKm(*ui.Location) < loc.DistanceKm(*uj.Location)
	})
	return users, nil
}

// PlayableTracks selects tracks from users through the discovery filter
// chain. selfID excludes the listener's own tracks; known (may be nil)
// excludes tracks already in the playlist.
func (s *Service) PlayableTracks(ctx context.Context, users []*user.User, selfID string, known filter.TrackSource) []track.Track {
	chain := filter.NewChain(
		filter.NewPlayableFilter(),
		filter.NewGenreFilter(s.config.Genres),
		filter.NewExcludeUserFilter(selfID),
		filter.NewDuplicateTrackFilter(known),
	)
	return chain.Select(ctx, users)
}

// Discover runs a full pass: locate, publish, fetch nearby users and
// select their playable tracks.
func (s *Service) Discover(ctx context.Context, b Backend, selfID string, known filter.TrackSource) (*Discovery, error) {
	located := s.Locate(ctx)
	s.Publish(ctx, b, located.Location)

	users, err := s.Nearby(ctx, b, located.Location)
	if err != nil {
		return &Discovery{Located: located}, err
	}

	return &Discovery{
		Located: located,
		Users:   users,
		Tracks:  s.PlayableTracks(ctx, users, selfID, known),
	}, nil
}
