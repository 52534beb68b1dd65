package connect

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"

	playerv1 "github.com/osa030/tunemap/internal/api/playerv1"
)

// PlayerClient calls a PlayerService over the JSON codec.
type PlayerClient struct {
	play          *connect.Client[playerv1.PlayRequest, playerv1.StatusResponse]
	pause         *connect.Client[playerv1.Empty, playerv1.StatusResponse]
	resume        *connect.Client[playerv1.Empty, playerv1.StatusResponse]
	next          *connect.Client[playerv1.Empty, playerv1.StatusResponse]
	previous      *connect.Client[playerv1.Empty, playerv1.StatusResponse]
	seek          *connect.Client[playerv1.SeekRequest, playerv1.StatusResponse]
	setVolume     *connect.Client[playerv1.SetVolumeRequest, playerv1.SetVolumeResponse]
	toggleMute    *connect.Client[playerv1.Empty, playerv1.ToggleMuteResponse]
	enqueue       *connect.Client[playerv1.AddTrackRequest, playerv1.AddTrackResponse]
	addToPlaylist *connect.Client[playerv1.AddTrackRequest, playerv1.AddTrackResponse]
	clearQueue    *connect.Client[playerv1.Empty, playerv1.StatusResponse]
	clearPlaylist *connect.Client[playerv1.Empty, playerv1.StatusResponse]
	status        *connect.Client[playerv1.Empty, playerv1.StatusResponse]
	subscribe     *connect.Client[playerv1.SubscribeRequest, playerv1.Notification]
}

// NewPlayerClient creates a client for the service at baseURL.
// A non-empty token is sent in ControlTokenHeader.
func NewPlayerClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *PlayerClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(&tokenHeaderInterceptor{token: token}),
	}, opts...)

	return &PlayerClient{
		play:          connect.NewClient[playerv1.PlayRequest, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServicePlayProcedure, opts...),
		pause:         connect.NewClient[playerv1.Empty, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServicePauseProcedure, opts...),
		resume:        connect.NewClient[playerv1.Empty, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServiceResumeProcedure, opts...),
		next:          connect.NewClient[playerv1.Empty, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServiceNextProcedure, opts...),
		previous:      connect.NewClient[playerv1.Empty, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServicePreviousProcedure, opts...),
		seek:          connect.NewClient[playerv1.SeekRequest, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServiceSeekProcedure, opts...),
		setVolume:     connect.NewClient[playerv1.SetVolumeRequest, playerv1.SetVolumeResponse](httpClient, baseURL+playerv1.PlayerServiceSetVolumeProcedure, opts...),
		toggleMute:    connect.NewClient[playerv1.Empty, playerv1.ToggleMuteResponse](httpClient, baseURL+playerv1.PlayerServiceToggleMuteProcedure, opts...),
		enqueue:       connect.NewClient[playerv1.AddTrackRequest, playerv1.AddTrackResponse](httpClient, baseURL+playerv1.PlayerServiceEnqueueProcedure, opts...),
		addToPlaylist: connect.NewClient[playerv1.AddTrackRequest, playerv1.AddTrackResponse](httpClient, baseURL+playerv1.PlayerServiceAddToPlaylistProcedure, opts...),
		clearQueue:    connect.NewClient[playerv1.Empty, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServiceClearQueueProcedure, opts...),
		clearPlaylist: connect.NewClient[playerv1.Empty, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServiceClearPlaylistProcedure, opts...),
		status:        connect.NewClient[playerv1.Empty, playerv1.StatusResponse](httpClient, baseURL+playerv1.PlayerServiceStatusProcedure, opts...),
		subscribe:     connect.NewClient[playerv1.SubscribeRequest, playerv1.Notification](httpClient, baseURL+playerv1.PlayerServiceSubscribeProcedure, opts...),
	}
}

func statusOf(res *connect.Response[playerv1.StatusResponse], err error) (*playerv1.Status, error) {
	if err != nil {
		return nil, err
	}
	return res.Msg.Status, nil
}

// Play starts a track.
func (c *PlayerClient) Play(ctx context.Context, t *playerv1.Track) (*playerv1.Status, error) {
	return statusOf(c.play.CallUnary(ctx, connect.NewRequest(&playerv1.PlayRequest{Track: t})))
}

// Pause pauses playback.
func (c *PlayerClient) Pause(ctx context.Context) (*playerv1.Status, error) {
	return statusOf(c.pause.CallUnary(ctx, connect.NewRequest(&playerv1.Empty{})))
}

// Resume resumes playback.
func (c *PlayerClient) Resume(ctx context.Context) (*playerv1.Status, error) {
	return statusOf(c.resume.CallUnary(ctx, connect.NewRequest(&playerv1.Empty{})))
}

// Next skips to the next track.
func (c *PlayerClient) Next(ctx context.Context) (*playerv1.Status, error) {
	return statusOf(c.next.CallUnary(ctx, connect.NewRequest(&playerv1.Empty{})))
}

// Previous goes back one playlist entry.
func (c *PlayerClient) Previous(ctx context.Context) (*playerv1.Status, error) {
	return statusOf(c.previous.CallUnary(ctx, connect.NewRequest(&playerv1.Empty{})))
}

// Seek moves to position.
func (c *PlayerClient) Seek(ctx context.Context, position time.Duration) (*playerv1.Status, error) {
	return statusOf(c.seek.CallUnary(ctx, connect.NewRequest(&playerv1.SeekRequest{PositionMs: position.Milliseconds()})))
}

// SetVolume sets the volume and returns the applied value.
func (c *PlayerClient) SetVolume(ctx context.Context, volume int) (int, error) {
	res, err := c.setVolume.CallUnary(ctx, connect.NewRequest(&playerv1.SetVolumeRequest{Volume: volume}))
	if err != nil {
		return 0, err
	}
	return res.Msg.Volume, nil
}

// ToggleMute flips the mute flag and returns the new value.
func (c *PlayerClient) ToggleMute(ctx context.Context) (bool, error) {
	res, err := c.toggleMute.CallUnary(ctx, connect.NewRequest(&playerv1.Empty{}))
	if err != nil {
		return false, err
	}
	return res.Msg.Muted, nil
}

// Enqueue adds a track to the play-next queue.
func (c *PlayerClient) Enqueue(ctx context.Context, t *playerv1.Track) (bool, error) {
	res, err := c.enqueue.CallUnary(ctx, connect.NewRequest(&playerv1.AddTrackRequest{Track: t}))
	if err != nil {
		return false, err
	}
	return res.Msg.Added, nil
}

// AddToPlaylist appends a track to the playlist.
func (c *PlayerClient) AddToPlaylist(ctx context.Context, t *playerv1.Track) (bool, error) {
	res, err := c.addToPlaylist.CallUnary(ctx, connect.NewRequest(&playerv1.AddTrackRequest{Track: t}))
	if err != nil {
		return false, err
	}
	return res.Msg.Added, nil
}

// ClearQueue empties the queue.
func (c *PlayerClient) ClearQueue(ctx context.Context) (*playerv1.Status, error) {
	return statusOf(c.clearQueue.CallUnary(ctx, connect.NewRequest(&playerv1.Empty{})))
}

// ClearPlaylist empties the playlist and stops the current track.
func (c *PlayerClient) ClearPlaylist(ctx context.Context) (*playerv1.Status, error) {
	return statusOf(c.clearPlaylist.CallUnary(ctx, connect.NewRequest(&playerv1.Empty{})))
}

// Status returns the player state.
func (c *PlayerClient) Status(ctx context.Context) (*playerv1.Status, error) {
	return statusOf(c.status.CallUnary(ctx, connect.NewRequest(&playerv1.Empty{})))
}

// Subscribe opens the notification stream.
func (c *PlayerClient) Subscribe(ctx context.Context, includeProgress bool) (*connect.ServerStreamForClient[playerv1.Notification], error) {
	return c.subscribe.CallServerStream(ctx, connect.NewRequest(&playerv1.SubscribeRequest{IncludeProgress: includeProgress}))
}
