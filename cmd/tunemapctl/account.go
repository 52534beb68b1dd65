package main

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tunemap/internal/app/discovery"
	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/domain/user"
	"github.com/osa030/tunemap/internal/infra/backend"
	"github.com/osa030/tunemap/internal/infra/geo"
)

func (c *cli) register(ctx context.Context, username, password string) error {
	if err := c.session.Register(ctx, username, password); err != nil {
		return err
	}
	fmt.Printf("Registered and logged in as %s\n", username)
	return nil
}

func (c *cli) login(ctx context.Context, username, password string) error {
	if err := c.session.Login(ctx, username, password); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", username)
	return nil
}

func (c *cli) logout() error {
	if err := c.session.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func (c *cli) me(ctx context.Context) error {
	client, err := c.session.Client()
	if err != nil {
		return err
	}
	u, err := client.CurrentUser(ctx)
	if err != nil {
		return c.session.Guard(err)
	}

	info := c.session.Info()
	fmt.Printf("User: %s (id %s)\n", u.Username, u.ID)
	if info.LoggedInAt != nil {
		fmt.Printf("  Logged in: %s\n", info.LoggedInAt.Format("2006-01-02 15:04"))
	}
	if u.HasLocation() {
		fmt.Printf("  Location: %s\n", u.Location)
	} else {
		fmt.Println("  Location: not shared")
	}
	fmt.Printf("  Tracks: %d\n", len(u.Tracks))
	return nil
}

// nearby locates the device, publishes the position and lists nearby users
// with the tracks that pass discovery filtering. Tracks already in the
// player's playlist are left out when the player is reachable.
func (c *cli) nearby(ctx context.Context, play, enqueue bool) error {
	client, err := c.session.Client()
	if err != nil {
		return err
	}
	me, err := client.CurrentUser(ctx)
	if err != nil {
		return c.session.Guard(err)
	}

	svc, err := c.discovery()
	if err != nil {
		return err
	}

	result, err := svc.Discover(ctx, client, me.ID, c.playerPlaylist(ctx))
	if result != nil && result.Warning != "" {
		fmt.Printf("Warning: %s\n", result.Warning)
	}
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return c.session.Guard(err)
		}
		return &userError{msg: c.cfg.Messages.NearbyFailed, cause: err}
	}

	fmt.Printf("Your location: %s\n", result.Location)
	printUsers(result.Location, result.Users)
	printTracks("Discovered tracks", result.Tracks)

	if len(result.Tracks) == 0 {
		return nil
	}
	switch {
	case play:
		return printStatus(c.player.Play(ctx, toWire(result.Tracks[0])))
	case enqueue:
		added := 0
		for _, t := range result.Tracks {
			ok, err := c.player.Enqueue(ctx, toWire(t))
			if err != nil {
				return err
			}
			if ok {
				added++
			}
		}
		fmt.Printf("Queued %d of %d tracks\n", added, len(result.Tracks))
	}
	return nil
}

func (c *cli) discovery() (*discovery.Service, error) {
	locator, err := geo.NewLocatorFromConfig(c.cfg)
	if err != nil {
		return nil, err
	}
	def := user.Location{
		Latitude:  c.cfg.Location.DefaultLatitude,
		Longitude: c.cfg.Location.DefaultLongitude,
	}
	return discovery.New(locator, discovery.Config{
		Timeout:         c.cfg.LocationTimeout(),
		Default:         &def,
		RadiusKm:        c.cfg.Location.RadiusKm,
		Genres:          c.cfg.Location.Genres,
		FallbackMessage: c.cfg.Messages.LocationFallback,
	}), nil
}

// playlistTracks adapts a player status snapshot for duplicate filtering.
type playlistTracks []track.Track

func (p playlistTracks) Tracks() []track.Track {
	return p
}

// playerPlaylist returns the player's playlist, or nil when the player is not running.
func (c *cli) playerPlaylist(ctx context.Context) playlistTracks {
	status, err := c.player.Status(ctx)
	if err != nil {
		return nil
	}
	tracks := make(playlistTracks, 0, len(status.Playlist))
	for i := range status.Playlist {
		tracks = append(tracks, fromWire(&status.Playlist[i]))
	}
	return tracks
}
