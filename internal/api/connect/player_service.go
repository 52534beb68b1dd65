package connect

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/tunemap/internal/api/playerv1"
	"github.com/osa030/tunemap/internal/app/notification"
	"github.com/osa030/tunemap/internal/app/playback"
	"github.com/osa030/tunemap/internal/domain/track"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	player        *playback.Coordinator
	notifications *notification.Manager
	done          chan struct{}
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(player *playback.Coordinator, notifications *notification.Manager) *PlayerService {
	return &PlayerService{
		player:        player,
		notifications: notifications,
		done:          make(chan struct{}),
	}
}

// NewPlayerServiceHandler builds an HTTP handler serving every PlayerService
// procedure. It returns the path on which to mount the handler.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(playerv1.PlayerServicePlayProcedure, connect.NewUnaryHandler(playerv1.PlayerServicePlayProcedure, svc.Play, opts...))
	mux.Handle(playerv1.PlayerServicePauseProcedure, connect.NewUnaryHandler(playerv1.PlayerServicePauseProcedure, svc.Pause, opts...))
	mux.Handle(playerv1.PlayerServiceResumeProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceResumeProcedure, svc.Resume, opts...))
	mux.Handle(playerv1.PlayerServiceNextProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceNextProcedure, svc.Next, opts...))
	mux.Handle(playerv1.PlayerServicePreviousProcedure, connect.NewUnaryHandler(playerv1.PlayerServicePreviousProcedure, svc.Previous, opts...))
	mux.Handle(playerv1.PlayerServiceSeekProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceSeekProcedure, svc.Seek, opts...))
	mux.Handle(playerv1.PlayerServiceSetVolumeProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceSetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(playerv1.PlayerServiceToggleMuteProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceToggleMuteProcedure, svc.ToggleMute, opts...))
	mux.Handle(playerv1.PlayerServiceEnqueueProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceEnqueueProcedure, svc.Enqueue, opts...))
	mux.Handle(playerv1.PlayerServiceAddToPlaylistProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceAddToPlaylistProcedure, svc.AddToPlaylist, opts...))
	mux.Handle(playerv1.PlayerServiceClearQueueProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceClearQueueProcedure, svc.ClearQueue, opts...))
	mux.Handle(playerv1.PlayerServiceClearPlaylistProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceClearPlaylistProcedure, svc.ClearPlaylist, opts...))
	mux.Handle(playerv1.PlayerServiceStatusProcedure, connect.NewUnaryHandler(playerv1.PlayerServiceStatusProcedure, svc.Status, opts...))
	mux.Handle(playerv1.PlayerServiceSubscribeProcedure, connect.NewServerStreamHandler(playerv1.PlayerServiceSubscribeProcedure, svc.Subscribe, opts...))

	return "/" + playerv1.PlayerServiceName + "/", mux
}

// Run forwards coordinator events to subscribers until ctx is done or the
// coordinator is closed. Open Subscribe streams end when Run returns.
func (s *PlayerService) Run(ctx context.Context) {
	defer close(s.done)

	events := s.player.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.notifications.Broadcast(&playerv1.Notification{
				Type:   ev.Type.String(),
				Status: buildStatus(s.player.Snapshot()),
			})
		}
	}
}

// Play handles play requests.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[playerv1.PlayRequest],
) (*connect.Response[playerv1.StatusResponse], error) {
	t, err := toTrack(req.Msg.Track)
	if err != nil {
		return nil, err
	}
	s.player.PlayTrack(t)
	return s.statusResponse(), nil
}

// Pause handles pause requests.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StatusResponse], error) {
	if err := s.player.PauseTrack(); err != nil {
		return nil, toConnectError(err)
	}
	return s.statusResponse(), nil
}

// Resume handles resume requests.
func (s *PlayerService) Resume(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StatusResponse], error) {
	if err := s.player.ResumeTrack(); err != nil {
		return nil, toConnectError(err)
	}
	return s.statusResponse(), nil
}

// Next handles next track requests.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StatusResponse], error) {
	if err := s.player.NextTrack(); err != nil {
		return nil, toConnectError(err)
	}
	return s.statusResponse(), nil
}

// Previous handles previous track requests.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StatusResponse], error) {
	if err := s.player.PreviousTrack(); err != nil {
		return nil, toConnectError(err)
	}
	return s.statusResponse(), nil
}

// Seek handles seek requests.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[playerv1.SeekRequest],
) (*connect.Response[playerv1.StatusResponse], error) {
	if err := s.player.SeekTo(time.Duration(req.Msg.PositionMs) * time.Millisecond); err != nil {
		return nil, toConnectError(err)
	}
	return s.statusResponse(), nil
}

// SetVolume handles volume requests.
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[playerv1.SetVolumeRequest],
) (*connect.Response[playerv1.SetVolumeResponse], error) {
	volume := s.player.SetVolume(req.Msg.Volume)
	return connect.NewResponse(&playerv1.SetVolumeResponse{Volume: volume}), nil
}

// ToggleMute handles mute requests.
func (s *PlayerService) ToggleMute(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.ToggleMuteResponse], error) {
	muted := s.player.ToggleMute()
	return connect.NewResponse(&playerv1.ToggleMuteResponse{Muted: muted}), nil
}

// Enqueue handles play-next requests.
func (s *PlayerService) Enqueue(
	ctx context.Context,
	req *connect.Request[playerv1.AddTrackRequest],
) (*connect.Response[playerv1.AddTrackResponse], error) {
	t, err := toTrack(req.Msg.Track)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&playerv1.AddTrackResponse{Added: s.player.AddToQueue(t)}), nil
}

// AddToPlaylist handles playlist append requests.
func (s *PlayerService) AddToPlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.AddTrackRequest],
) (*connect.Response[playerv1.AddTrackResponse], error) {
	t, err := toTrack(req.Msg.Track)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&playerv1.AddTrackResponse{Added: s.player.AddToPlaylist(t)}), nil
}

// ClearQueue handles queue clear requests.
func (s *PlayerService) ClearQueue(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StatusResponse], error) {
	s.player.ClearQueue()
	return s.statusResponse(), nil
}

// ClearPlaylist handles playlist clear requests.
func (s *PlayerService) ClearPlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StatusResponse], error) {
	s.player.ClearPlaylist()
	return s.statusResponse(), nil
}

// Status returns the player state.
func (s *PlayerService) Status(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StatusResponse], error) {
	return s.statusResponse(), nil
}

// Subscribe handles notification subscription requests.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[playerv1.SubscribeRequest],
	stream *connect.ServerStream[playerv1.Notification],
) error {
	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notifications.Subscribe(adapter, req.Msg.IncludeProgress)
	defer s.notifications.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("subscriber joined: subscription=%s subscribers=%d",
		subscriptionID, s.notifications.SubscriberCount())

	// Sent through the manager so it never overlaps a broadcast on this stream
	initial := &playerv1.Notification{
		Type:       playerv1.NotificationTypeInitialState,
		SequenceNo: s.notifications.NextSequenceNo(),
		Status:     buildStatus(s.player.Snapshot()),
	}
	if err := s.notifications.Send(subscriptionID, initial); err != nil {
		return err
	}

	// Wait for client disconnect, shutdown or a dropped stream
	select {
	case <-ctx.Done():
	case <-s.done:
	case <-s.notifications.Done(subscriptionID):
		zlog.Debug().Msgf("subscriber dropped: subscription=%s", subscriptionID)
	}

	zlog.Debug().Msgf("subscriber left: subscription=%s", subscriptionID)
	return nil
}

func (s *PlayerService) statusResponse() *connect.Response[playerv1.StatusResponse] {
	return connect.NewResponse(&playerv1.StatusResponse{Status: buildStatus(s.player.Snapshot())})
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[playerv1.Notification]
}

func (a *notificationStreamAdapter) Send(notification *playerv1.Notification) error {
	return a.stream.Send(notification)
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, playback.ErrNoTrack), errors.Is(err, playback.ErrNothingToPlay):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toTrack(t *playerv1.Track) (track.Track, error) {
	if t == nil || t.Id == "" {
		return track.Track{}, connect.NewError(connect.CodeInvalidArgument, errors.New("track with an id is required"))
	}
	return track.Track{
		ID:        t.Id,
		Title:     t.Title,
		Artist:    t.Artist,
		Genre:     t.Genre,
		Locator:   t.Locator,
		SpotifyID: t.SpotifyId,
		OwnerID:   t.OwnerId,
	}, nil
}

// FromTrack converts a domain track to its wire form.
func FromTrack(t track.Track) *playerv1.Track {
	return &playerv1.Track{
		Id:        t.ID,
		Title:     t.Title,
		Artist:    t.Artist,
		Genre:     t.Genre,
		Locator:   t.Locator,
		SpotifyId: t.SpotifyID,
		OwnerId:   t.OwnerID,
	}
}

func fromTracks(tracks []track.Track) []playerv1.Track {
	result := make([]playerv1.Track, 0, len(tracks))
	for _, t := range tracks {
		result = append(result, *FromTrack(t))
	}
	return result
}

func buildStatus(snap playback.Snapshot) *playerv1.Status {
	status := &playerv1.Status{
		State:        snap.State().String(),
		CurrentIndex: snap.CurrentIndex,
		Volume:       snap.Volume,
		Muted:        snap.Muted,
		PositionMs:   snap.Position.Milliseconds(),
		DurationMs:   snap.Duration.Milliseconds(),
		Playlist:     fromTracks(snap.Playlist),
		Queue:        fromTracks(snap.Queue),
	}
	if snap.Current != nil {
		status.Current = FromTrack(*snap.Current)
	}
	return status
}
