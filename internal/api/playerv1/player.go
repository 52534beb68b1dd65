// Package playerv1 defines the messages and procedures of the player
// control service.
package playerv1

const (
	// PlayerServiceName is the fully-qualified name of the PlayerService service.
	PlayerServiceName = "tunemap.player.v1.PlayerService"
)

// Procedure paths, used with connect handlers and clients.
const (
	PlayerServicePlayProcedure          = "/tunemap.player.v1.PlayerService/Play"
	PlayerServicePauseProcedure         = "/tunemap.player.v1.PlayerService/Pause"
	PlayerServiceResumeProcedure        = "/tunemap.player.v1.PlayerService/Resume"
	PlayerServiceNextProcedure          = "/tunemap.player.v1.PlayerService/Next"
	PlayerServicePreviousProcedure      = "/tunemap.player.v1.PlayerService/Previous"
	PlayerServiceSeekProcedure          = "/tunemap.player.v1.PlayerService/Seek"
	PlayerServiceSetVolumeProcedure     = "/tunemap.player.v1.PlayerService/SetVolume"
	PlayerServiceToggleMuteProcedure    = "/tunemap.player.v1.PlayerService/ToggleMute"
	PlayerServiceEnqueueProcedure       = "/tunemap.player.v1.PlayerService/Enqueue"
	PlayerServiceAddToPlaylistProcedure = "/tunemap.player.v1.PlayerService/AddToPlaylist"
	PlayerServiceClearQueueProcedure    = "/tunemap.player.v1.PlayerService/ClearQueue"
	PlayerServiceClearPlaylistProcedure = "/tunemap.player.v1.PlayerService/ClearPlaylist"
	PlayerServiceStatusProcedure        = "/tunemap.player.v1.PlayerService/Status"
	PlayerServiceSubscribeProcedure     = "/tunemap.player.v1.PlayerService/Subscribe"
)

// NotificationType values.
const (
	NotificationTypeInitialState    = "initial_state"
	NotificationTypeTrackStarted    = "track_started"
	NotificationTypeStateChanged    = "state_changed"
	NotificationTypeQueueChanged    = "queue_changed"
	NotificationTypePlaylistChanged = "playlist_changed"
	NotificationTypeProgress        = "progress"
	NotificationTypeVolumeChanged   = "volume_changed"
)

// Track is a playable item.
type Track struct {
	Id        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Genre     string `json:"genre,omitempty"`
	Locator   string `json:"locator"`
	SpotifyId string `json:"spotify_id,omitempty"`
	OwnerId   string `json:"owner_id,omitempty"`
}

// Status is the full player state.
type Status struct {
	State        string  `json:"state"`
	Current      *Track  `json:"current,omitempty"`
	CurrentIndex int     `json:"current_index"`
	Volume       int     `json:"volume"`
	Muted        bool    `json:"muted"`
	PositionMs   int64   `json:"position_ms"`
	DurationMs   int64   `json:"duration_ms"`
	Playlist     []Track `json:"playlist"`
	Queue        []Track `json:"queue"`
}

// Empty is used by procedures that take no arguments.
type Empty struct{}

type PlayRequest struct {
	Track *Track `json:"track"`
}

type SeekRequest struct {
	PositionMs int64 `json:"position_ms"`
}

type SetVolumeRequest struct {
	Volume int `json:"volume"`
}

type SetVolumeResponse struct {
	Volume int `json:"volume"`
}

type ToggleMuteResponse struct {
	Muted bool `json:"muted"`
}

// AddTrackRequest is used by Enqueue and AddToPlaylist.
type AddTrackRequest struct {
	Track *Track `json:"track"`
}

type AddTrackResponse struct {
	Added bool `json:"added"`
}

type StatusResponse struct {
	Status *Status `json:"status"`
}

type SubscribeRequest struct {
	// IncludeProgress enables progress notifications, which arrive at the
	// engine polling rate.
	IncludeProgress bool `json:"include_progress"`
}

// Notification is a player event pushed to subscribers.
type Notification struct {
	Type       string  `json:"type"`
	SequenceNo uint64  `json:"sequence_no"`
	Status     *Status `json:"status,omitempty"`
}
