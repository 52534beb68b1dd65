package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/osa030/tunemap/internal/app/library"
	"github.com/osa030/tunemap/internal/infra/backend"
	"github.com/osa030/tunemap/internal/infra/lastfm"
	"github.com/osa030/tunemap/internal/infra/spotify"
)

// library returns the track library service. Spotify import and Last.fm
// genre lookup are enabled when their credentials are configured.
func (c *cli) library(ctx context.Context) (*library.Service, error) {
	var lib *library.Service
	if c.cfg.SpotifyEnabled() {
		catalog, err := c.spotify(ctx)
		if err != nil {
			return nil, err
		}
		lib = library.New(catalog)
	} else {
		lib = library.New(nil)
	}

	if c.cfg.LastFMEnabled() {
		tagger, err := lastfm.New(lastfm.Config{
			APIKey:  c.cfg.LastFM.APIKey,
			Timeout: c.cfg.BackendTimeout(),
		})
		if err != nil {
			return nil, err
		}
		lib.WithTagger(tagger)
	}
	return lib, nil
}

func (c *cli) spotify(ctx context.Context) (*spotify.Client, error) {
	if !c.cfg.SpotifyEnabled() {
		return nil, library.ErrCatalogDisabled
	}
	return spotify.New(ctx, spotify.Config{
		ClientID:     c.cfg.Spotify.ClientID,
		ClientSecret: c.cfg.Spotify.ClientSecret,
		Market:       c.cfg.Spotify.Market,
	})
}

func (c *cli) listTracks(ctx context.Context) error {
	client, err := c.session.Client()
	if err != nil {
		return err
	}
	lib, err := c.library(ctx)
	if err != nil {
		return err
	}

	tracks, err := lib.List(ctx, client)
	if err != nil {
		return c.session.Guard(err)
	}

	printTracks("Your tracks", tracks)
	stats := library.Summarize(tracks)
	if len(stats.Genres) > 0 {
		fmt.Printf("%d tracks, genres: %s\n", stats.Tracks, strings.Join(stats.Genres, ", "))
	}
	return nil
}

func (c *cli) addTrack(ctx context.Context, in backend.TrackInput) error {
	client, err := c.session.Client()
	if err != nil {
		return err
	}
	lib, err := c.library(ctx)
	if err != nil {
		return err
	}

	t, err := lib.Create(ctx, client, in)
	if err != nil {
		return c.session.Guard(err)
	}
	fmt.Printf("Published [%s] %s\n", t.ID, t)
	return nil
}

func (c *cli) uploadTrack(ctx context.Context, path, title, artist, genre string) error {
	client, err := c.session.Client()
	if err != nil {
		return err
	}
	lib, err := c.library(ctx)
	if err != nil {
		return err
	}

	t, err := lib.Upload(ctx, client, path, library.UploadMetadata{
		Title:  title,
		Artist: artist,
		Genre:  genre,
	})
	if err != nil {
		return c.session.Guard(err)
	}
	fmt.Printf("Uploaded [%s] %s\n", t.ID, t)
	return nil
}

func (c *cli) deleteTrack(ctx context.Context, id string) error {
	client, err := c.session.Client()
	if err != nil {
		return err
	}
	lib, err := c.library(ctx)
	if err != nil {
		return err
	}

	t, err := lib.Delete(ctx, client, id)
	if err != nil {
		return c.session.Guard(err)
	}
	fmt.Printf("Deleted [%s] %s\n", t.ID, t)
	return nil
}

func (c *cli) importTrack(ctx context.Context, ref, playlist, genre string) error {
	if (ref == "") == (playlist == "") {
		return &userError{msg: "give either a Spotify track or --playlist"}
	}

	client, err := c.session.Client()
	if err != nil {
		return err
	}
	lib, err := c.library(ctx)
	if err != nil {
		return err
	}

	if playlist != "" {
		result, err := lib.ImportSpotifyPlaylist(ctx, client, playlist, genre)
		for _, t := range result.Imported {
			fmt.Printf("Imported [%s] %s\n", t.ID, t)
		}
		if err != nil {
			return c.session.Guard(err)
		}
		fmt.Printf("%d imported, %d without preview, %d already published\n",
			len(result.Imported), result.NoPreview, result.Existing)
		return nil
	}

	t, err := lib.ImportSpotify(ctx, client, ref, genre)
	if err != nil {
		return c.session.Guard(err)
	}
	fmt.Printf("Imported [%s] %s\n", t.ID, t)
	return nil
}

func (c *cli) searchTracks(ctx context.Context, query string, limit int) error {
	catalog, err := c.spotify(ctx)
	if err != nil {
		return err
	}

	tracks, err := catalog.Search(ctx, query, limit)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		fmt.Println("No results")
		return nil
	}
	for _, t := range tracks {
		preview := "no preview"
		if t.Playable() {
			preview = "preview"
		}
		fmt.Printf("  %s  %s (%s)\n", t.SpotifyID, t, preview)
	}
	return nil
}
