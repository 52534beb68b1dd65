// Package library manages the tracks the logged in user publishes.
package library

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/infra/backend"
)

var (
	ErrNotAudio        = errors.New("file is not an audio file")
	ErrNoPreview       = errors.New("track has no preview audio")
	ErrCatalogDisabled = errors.New("spotify catalog is not configured")
)

// Backend is the subset of the REST client used by the library.
type Backend interface {
	ListTracks(ctx context.Context) ([]track.Track, error)
	CreateTrack(ctx context.Context, in backend.TrackInput) (track.Track, error)
	UploadTrack(ctx context.Context, in backend.UploadInput) (track.Track, error)
	DeleteTrack(ctx context.Context, id string) (track.Track, error)
}

// Catalog looks up tracks in an external catalog.
type Catalog interface {
	GetTrack(ctx context.Context, trackID string) (*track.Track, error)
	GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error)
}

// Tagger guesses a genre for a track.
type Tagger interface {
	Genre(ctx context.Context, title, artist string) (string, error)
}

// UploadMetadata holds optional form fields for an upload.
type UploadMetadata struct {
	Title  string // defaults to the file name without extension
	Artist string
	Genre  string
}

// PlaylistImport reports the outcome of a playlist import.
type PlaylistImport struct {
	Imported  []track.Track
	NoPreview int // catalog tracks without preview audio
	Existing  int // tracks already in the library
}

// Stats summarizes a library.
type Stats struct {
	Tracks int
	Genres []string
}

// Service publishes and removes tracks.
type Service struct {
	catalog  Catalog
	tagger   Tagger
	validate *validator.Validate
}

// New creates a new library service. catalog may be nil.
func New(catalog Catalog) *Service {
	return &Service{
		catalog:  catalog,
		validate: validator.New(),
	}
}

// WithTagger sets the tagger used to fill in genres of imported tracks.
func (s *Service) WithTagger(tagger Tagger) *Service {
	s.tagger = tagger
	return s
}

// List returns the user's tracks.
func (s *Service) List(ctx context.Context, b Backend) ([]track.Track, error) {
	tracks, err := b.ListTracks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tracks")
	}
	return tracks, nil
}

// Create publishes a track described by metadata.
func (s *Service) Create(ctx context.Context, b Backend, in backend.TrackInput) (track.Track, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.Genre = strings.TrimSpace(in.Genre)
	if err := s.validate.Struct(in); err != nil {
		return track.Track{}, errors.Wrap(err, "invalid track")
	}

	t, err := b.CreateTrack(ctx, in)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to create track")
	}
	zlog.Info().Msgf("created track %s (%s)", t.ID, t)
	return t, nil
}

// Upload publishes an audio file. The content type is sniffed from the file
// and must be audio/*.
func (s *Service) Upload(ctx context.Context, b Backend, path string, meta UploadMetadata) (track.Track, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to detect file type")
	}
	if !isAudio(mtype) {
		return track.Track{}, errors.Wrapf(ErrNotAudio, "%s is %s", filepath.Base(path), mtype.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	name := filepath.Base(path)
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(name, filepath.Ext(name))
	}

	t, err := b.UploadTrack(ctx, backend.UploadInput{
		FileName:    name,
		ContentType: mtype.String(),
		Content:     f,
		Title:       meta.Title,
		Artist:      meta.Artist,
		Genre:       meta.Genre,
	})
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to upload track")
	}
	zlog.Info().Msgf("uploaded %s as track %s", name, t.ID)
	return t, nil
}

// Delete removes a track.
func (s *Service) Delete(ctx context.Context, b Backend, id string) (track.Track, error) {
	t, err := b.DeleteTrack(ctx, id)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to delete track")
	}
	zlog.Info().Msgf("deleted track %s", id)
	return t, nil
}

// ImportSpotify publishes a catalog track whose preview becomes the audio.
// ref is a Spotify ID, URI or URL. An empty genre uses the catalog default.
func (s *Service) ImportSpotify(ctx context.Context, b Backend, ref, genre string) (track.Track, error) {
	if s.catalog == nil {
		return track.Track{}, ErrCatalogDisabled
	}

	found, err := s.catalog.GetTrack(ctx, ref)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to look up track")
	}
	if !found.Playable() {
		return track.Track{}, errors.Wrapf(ErrNoPreview, "%s", found)
	}

	if genre == "" {
		genre = s.guessGenre(ctx, found)
	}
	return s.Create(ctx, b, backend.TrackInput{
		Title:     found.Title,
		Artist:    found.Artist,
		Genre:     genre,
		SpotifyID: found.SpotifyID,
		Locator:   found.Locator,
	})
}

// ImportSpotifyPlaylist publishes every playable track of a catalog playlist.
// Tracks without a preview and tracks the user already published are skipped.
// On a backend failure the tracks imported so far are returned with the error.
func (s *Service) ImportSpotifyPlaylist(ctx context.Context, b Backend, ref, genre string) (PlaylistImport, error) {
	var result PlaylistImport
	if s.catalog == nil {
		return result, ErrCatalogDisabled
	}

	items, err := s.catalog.GetPlaylistTracks(ctx, ref)
	if err != nil {
		return result, errors.Wrap(err, "failed to look up playlist")
	}

	own, err := b.ListTracks(ctx)
	if err != nil {
		return result, errors.Wrap(err, "failed to list tracks")
	}
	published := make(map[string]struct{}, len(own))
	for _, t := range own {
		if t.SpotifyID != "" {
			published[t.SpotifyID] = struct{}{}
		}
	}

	for i := range items {
		found := &items[i]
		if !found.Playable() {
			result.NoPreview++
			continue
		}
		if _, ok := published[found.SpotifyID]; ok {
			result.Existing++
			continue
		}

		trackGenre := genre
		if trackGenre == "" {
			trackGenre = s.guessGenre(ctx, found)
		}
		t, err := s.Create(ctx, b, backend.TrackInput{
			Title:     found.Title,
			Artist:    found.Artist,
			Genre:     trackGenre,
			SpotifyID: found.SpotifyID,
			Locator:   found.Locator,
		})
		if err != nil {
			return result, err
		}
		published[found.SpotifyID] = struct{}{}
		result.Imported = append(result.Imported, t)
	}

	zlog.Info().Msgf("imported %d of %d playlist tracks", len(result.Imported), len(items))
	return result, nil
}

// guessGenre asks the tagger for a genre, keeping the catalog's on failure.
func (s *Service) guessGenre(ctx context.Context, t *track.Track) string {
	if s.tagger == nil {
		return t.Genre
	}
	genre, err := s.tagger.Genre(ctx, t.Title, t.Artist)
	if err != nil || genre == "" {
		zlog.Debug().Msgf("no genre for %s: %v", t, err)
		return t.Genre
	}
	return genre
}

// Summarize counts tracks and distinct genres.
func Summarize(tracks []track.Track) Stats {
	seen := make(map[string]struct{})
	genres := make([]string, 0)
	for _, t := range tracks {
		if _, ok := seen[t.Genre]; ok || t.Genre == "" {
			continue
		}
		seen[t.Genre] = struct{}{}
		genres = append(genres, t.Genre)
	}
	sort.Strings(genres)
	return Stats{Tracks: len(tracks), Genres: genres}
}

func isAudio(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}
