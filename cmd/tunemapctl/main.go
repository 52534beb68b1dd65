// Package main provides the tunemap command line client.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	apiconnect "github.com/osa030/tunemap/internal/api/connect"
	"github.com/osa030/tunemap/internal/app/library"
	"github.com/osa030/tunemap/internal/app/session"
	"github.com/osa030/tunemap/internal/infra/backend"
	"github.com/osa030/tunemap/internal/infra/config"
	"github.com/osa030/tunemap/internal/infra/logger"
	"github.com/osa030/tunemap/internal/infra/tokenstore"
)

var (
	app        = kingpin.New("tunemapctl", "tunemap client: discover nearby music and control the player")
	configPath = app.Flag("config", "Path to config file").Default("config/tunemap.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	control    = app.Flag("control", "Player control API URL (overrides config)").String()
	token      = app.Flag("token", "Player control token (or set TUNEMAP_CONTROL_TOKEN env)").Envar("TUNEMAP_CONTROL_TOKEN").String()

	// account commands
	registerCmd      = app.Command("register", "Create an account and log in")
	registerUsername = registerCmd.Arg("username", "Username").Required().String()
	registerPassword = registerCmd.Flag("password", "Password (or set TUNEMAP_PASSWORD env)").Envar("TUNEMAP_PASSWORD").Required().String()

	loginCmd      = app.Command("login", "Log in and store the access token")
	loginUsername = loginCmd.Arg("username", "Username").Required().String()
	loginPassword = loginCmd.Flag("password", "Password (or set TUNEMAP_PASSWORD env)").Envar("TUNEMAP_PASSWORD").Required().String()

	logoutCmd = app.Command("logout", "Remove the stored access token")
	meCmd     = app.Command("me", "Show the current account")

	// discovery commands
	nearbyCmd     = app.Command("nearby", "List nearby users and their playable tracks")
	nearbyPlay    = nearbyCmd.Flag("play", "Play the first discovered track").Bool()
	nearbyEnqueue = nearbyCmd.Flag("enqueue", "Queue every discovered track").Bool()

	// track commands
	tracksCmd = app.Command("tracks", "Manage your published tracks")

	tracksListCmd = tracksCmd.Command("list", "List your tracks").Default()

	tracksAddCmd    = tracksCmd.Command("add", "Publish a track by metadata")
	tracksAddTitle  = tracksAddCmd.Arg("title", "Track name").Required().String()
	tracksAddArtist = tracksAddCmd.Arg("artist", "Artist name").Required().String()
	tracksAddGenre  = tracksAddCmd.Arg("genre", "Genre").Required().String()
	tracksAddURL    = tracksAddCmd.Flag("url", "Audio URL").String()

	tracksUploadCmd    = tracksCmd.Command("upload", "Upload an audio file")
	tracksUploadFile   = tracksUploadCmd.Arg("file", "Audio file").Required().ExistingFile()
	tracksUploadTitle  = tracksUploadCmd.Flag("title", "Track name (default: file name)").String()
	tracksUploadArtist = tracksUploadCmd.Flag("artist", "Artist name").String()
	tracksUploadGenre  = tracksUploadCmd.Flag("genre", "Genre").String()

	tracksDeleteCmd = tracksCmd.Command("delete", "Delete one of your tracks")
	tracksDeleteID  = tracksDeleteCmd.Arg("track-id", "Track ID").Required().String()

	tracksImportCmd      = tracksCmd.Command("import", "Publish Spotify track previews")
	tracksImportRef      = tracksImportCmd.Arg("spotify-track", "Spotify track ID, URI or URL").String()
	tracksImportPlaylist = tracksImportCmd.Flag("playlist", "Spotify playlist URL or URI to import").String()
	tracksImportGenre    = tracksImportCmd.Flag("genre", "Genre").String()

	tracksSearchCmd   = tracksCmd.Command("search", "Search the Spotify catalog")
	tracksSearchQuery = tracksSearchCmd.Arg("query", "Search query").Required().String()
	tracksSearchLimit = tracksSearchCmd.Flag("limit", "Maximum results").Default("10").Int()

	// player commands
	playCmd   = app.Command("play", "Play a track now")
	playTrack = playCmd.Arg("track-id", "Track ID from nearby or your library").Required().String()

	enqueueCmd   = app.Command("enqueue", "Play a track after the current one")
	enqueueTrack = enqueueCmd.Arg("track-id", "Track ID from nearby or your library").Required().String()

	addCmd   = app.Command("add", "Append a track to the playlist")
	addTrack = addCmd.Arg("track-id", "Track ID from nearby or your library").Required().String()

	pauseCmd         = app.Command("pause", "Pause playback")
	resumeCmd        = app.Command("resume", "Resume playback")
	nextCmd          = app.Command("next", "Skip to the next track")
	prevCmd          = app.Command("prev", "Go back to the previous track").Alias("previous")
	seekCmd          = app.Command("seek", "Seek within the current track")
	seekPosition     = seekCmd.Arg("position", "Position (e.g. 1m30s)").Required().Duration()
	volumeCmd        = app.Command("volume", "Set the volume")
	volumeLevel      = volumeCmd.Arg("level", "Volume 0-100").Required().Int()
	muteCmd          = app.Command("mute", "Toggle mute")
	statusCmd        = app.Command("status", "Show player status")
	clearQueueCmd    = app.Command("clear-queue", "Clear the play-next queue")
	clearPlaylistCmd = app.Command("clear-playlist", "Clear the playlist")
	subscribeCmd     = app.Command("subscribe", "Stream player notifications")
	subscribeProg    = subscribeCmd.Flag("progress", "Include position updates").Bool()
)

// cli holds the collaborators shared by all commands.
type cli struct {
	cfg     *config.Config
	session *session.Manager
	player  *apiconnect.PlayerClient
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stderr", Level: "warn"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	c, err := newCLI(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.dispatch(ctx, command); err != nil {
		c.fail(err)
	}
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default()
	}
	return config.Load(path)
}

func newCLI(cfg *config.Config) (*cli, error) {
	client, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.BackendTimeout(),
	})
	if err != nil {
		return nil, err
	}

	mgr := session.NewManager(client, tokenstore.New(cfg.Auth.TokenFile))
	if err := mgr.Restore(); err != nil && !errors.Is(err, session.ErrLoggedOut) {
		zlog.Warn().Msgf("Failed to restore session: %v", err)
	}

	controlURL := cfg.Control.URL
	if *control != "" {
		controlURL = *control
	}
	controlToken := cfg.Control.Token
	if *token != "" {
		controlToken = *token
	}

	return &cli{
		cfg:     cfg,
		session: mgr,
		player:  apiconnect.NewPlayerClient(http.DefaultClient, controlURL, controlToken),
	}, nil
}

func (c *cli) dispatch(ctx context.Context, command string) error {
	switch command {
	case registerCmd.FullCommand():
		return c.register(ctx, *registerUsername, *registerPassword)
	case loginCmd.FullCommand():
		return c.login(ctx, *loginUsername, *loginPassword)
	case logoutCmd.FullCommand():
		return c.logout()
	case meCmd.FullCommand():
		return c.me(ctx)

	case nearbyCmd.FullCommand():
		return c.nearby(ctx, *nearbyPlay, *nearbyEnqueue)

	case tracksListCmd.FullCommand():
		return c.listTracks(ctx)
	case tracksAddCmd.FullCommand():
		return c.addTrack(ctx, backend.TrackInput{
			Title:   *tracksAddTitle,
			Artist:  *tracksAddArtist,
			Genre:   *tracksAddGenre,
			Locator: *tracksAddURL,
		})
	case tracksUploadCmd.FullCommand():
		return c.uploadTrack(ctx, *tracksUploadFile, *tracksUploadTitle, *tracksUploadArtist, *tracksUploadGenre)
	case tracksDeleteCmd.FullCommand():
		return c.deleteTrack(ctx, *tracksDeleteID)
	case tracksImportCmd.FullCommand():
		return c.importTrack(ctx, *tracksImportRef, *tracksImportPlaylist, *tracksImportGenre)
	case tracksSearchCmd.FullCommand():
		return c.searchTracks(ctx, *tracksSearchQuery, *tracksSearchLimit)

	case playCmd.FullCommand():
		return c.play(ctx, *playTrack)
	case enqueueCmd.FullCommand():
		return c.enqueue(ctx, *enqueueTrack)
	case addCmd.FullCommand():
		return c.addToPlaylist(ctx, *addTrack)
	case pauseCmd.FullCommand():
		return printStatus(c.player.Pause(ctx))
	case resumeCmd.FullCommand():
		return printStatus(c.player.Resume(ctx))
	case nextCmd.FullCommand():
		return printStatus(c.player.Next(ctx))
	case prevCmd.FullCommand():
		return printStatus(c.player.Previous(ctx))
	case seekCmd.FullCommand():
		return printStatus(c.player.Seek(ctx, *seekPosition))
	case volumeCmd.FullCommand():
		return c.setVolume(ctx, *volumeLevel)
	case muteCmd.FullCommand():
		return c.toggleMute(ctx)
	case statusCmd.FullCommand():
		return printStatus(c.player.Status(ctx))
	case clearQueueCmd.FullCommand():
		return printStatus(c.player.ClearQueue(ctx))
	case clearPlaylistCmd.FullCommand():
		return printStatus(c.player.ClearPlaylist(ctx))
	case subscribeCmd.FullCommand():
		return c.subscribe(ctx, *subscribeProg)
	}
	return errors.Newf("unknown command %q", command)
}

// userError carries a message meant for the user.
type userError struct {
	msg   string
	cause error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.cause }

// fail prints a user-facing message for err and exits.
func (c *cli) fail(err error) {
	zlog.Debug().Msgf("command failed: %+v", err)

	var (
		ue          *userError
		apiErr      *backend.APIError
		validateErr validator.ValidationErrors
	)
	switch {
	case errors.Is(err, session.ErrLoggedOut) && errors.Is(err, backend.ErrUnauthorized):
		fmt.Printf("Error: %s\n", c.cfg.Messages.SessionExpired)
	case errors.Is(err, session.ErrLoggedOut):
		fmt.Println("Error: not logged in (run `tunemapctl login <username>`)")
	case errors.As(err, &ue):
		fmt.Printf("Error: %s\n", ue.msg)
	case errors.As(err, &apiErr):
		fmt.Printf("Error: %s\n", backend.Detail(err, c.cfg.Messages.DefaultError))
	case errors.Is(err, library.ErrNotAudio),
		errors.Is(err, library.ErrNoPreview),
		errors.Is(err, library.ErrCatalogDisabled),
		errors.As(err, &validateErr),
		isControlError(err):
		fmt.Printf("Error: %v\n", err)
	default:
		fmt.Printf("Error: %s\n", c.cfg.Messages.DefaultError)
	}
	os.Exit(1)
}
