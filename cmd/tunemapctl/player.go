package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	apiconnect "github.com/osa030/tunemap/internal/api/connect"
	"github.com/osa030/tunemap/internal/api/playerv1"
	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/domain/user"
)

func (c *cli) play(ctx context.Context, id string) error {
	t, err := c.resolveTrack(ctx, id)
	if err != nil {
		return err
	}
	return printStatus(c.player.Play(ctx, toWire(t)))
}

func (c *cli) enqueue(ctx context.Context, id string) error {
	t, err := c.resolveTrack(ctx, id)
	if err != nil {
		return err
	}
	added, err := c.player.Enqueue(ctx, toWire(t))
	if err != nil {
		return err
	}
	if !added {
		fmt.Printf("%s is already queued\n", t)
		return nil
	}
	fmt.Printf("Queued %s\n", t)
	return nil
}

func (c *cli) addToPlaylist(ctx context.Context, id string) error {
	t, err := c.resolveTrack(ctx, id)
	if err != nil {
		return err
	}
	added, err := c.player.AddToPlaylist(ctx, toWire(t))
	if err != nil {
		return err
	}
	if !added {
		fmt.Printf("%s is already in the playlist\n", t)
		return nil
	}
	fmt.Printf("Added %s\n", t)
	return nil
}

// resolveTrack finds a track by ID in the player's playlist, the user's
// own library and the tracks of nearby users, in that order.
func (c *cli) resolveTrack(ctx context.Context, id string) (track.Track, error) {
	for _, t := range c.playerPlaylist(ctx) {
		if t.ID == id {
			return t, nil
		}
	}

	client, err := c.session.Client()
	if err != nil {
		return track.Track{}, err
	}

	own, err := client.ListTracks(ctx)
	if err != nil {
		return track.Track{}, c.session.Guard(err)
	}
	for _, t := range own {
		if t.ID == id {
			return t, nil
		}
	}

	svc, err := c.discovery()
	if err != nil {
		return track.Track{}, err
	}
	located := svc.Locate(ctx)
	users, err := svc.Nearby(ctx, client, located.Location)
	if err != nil {
		return track.Track{}, c.session.Guard(err)
	}
	for _, u := range users {
		for _, t := range u.Tracks {
			if t.ID == id {
				return t, nil
			}
		}
	}

	return track.Track{}, &userError{msg: fmt.Sprintf("track %s not found nearby or in your library", id)}
}

func (c *cli) setVolume(ctx context.Context, level int) error {
	volume, err := c.player.SetVolume(ctx, level)
	if err != nil {
		return err
	}
	fmt.Printf("Volume: %d\n", volume)
	return nil
}

func (c *cli) toggleMute(ctx context.Context) error {
	muted, err := c.player.ToggleMute(ctx)
	if err != nil {
		return err
	}
	if muted {
		fmt.Println("Muted")
	} else {
		fmt.Println("Unmuted")
	}
	return nil
}

func (c *cli) subscribe(ctx context.Context, progress bool) error {
	stream, err := c.player.Subscribe(ctx, progress)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Println("\nUnsubscribed")
	return nil
}

// isControlError reports whether err came from the player control API.
func isControlError(err error) bool {
	var connectErr *connect.Error
	return errors.As(err, &connectErr)
}

func toWire(t track.Track) *playerv1.Track {
	return apiconnect.FromTrack(t)
}

func fromWire(t *playerv1.Track) track.Track {
	return track.Track{
		ID:        t.Id,
		Title:     t.Title,
		Artist:    t.Artist,
		Genre:     t.Genre,
		Locator:   t.Locator,
		SpotifyID: t.SpotifyId,
		OwnerID:   t.OwnerId,
	}
}

func printStatus(status *playerv1.Status, err error) error {
	if err != nil {
		return err
	}

	fmt.Printf("State: %s\n", status.State)
	if status.Current != nil {
		fmt.Printf("  Now: %s [%s / %s]\n",
			fromWire(status.Current),
			formatMs(status.PositionMs),
			formatMs(status.DurationMs),
		)
	}
	mute := ""
	if status.Muted {
		mute = " (muted)"
	}
	fmt.Printf("  Volume: %d%s\n", status.Volume, mute)

	fmt.Printf("  Playlist (%d):\n", len(status.Playlist))
	for i := range status.Playlist {
		marker := "   "
		if i == status.CurrentIndex {
			marker = " > "
		}
		fmt.Printf("  %s%s\n", marker, fromWire(&status.Playlist[i]))
	}
	if len(status.Queue) > 0 {
		fmt.Printf("  Up next (%d):\n", len(status.Queue))
		for i := range status.Queue {
			fmt.Printf("     %s\n", fromWire(&status.Queue[i]))
		}
	}
	return nil
}

func printNotification(n *playerv1.Notification) {
	if n.Type == playerv1.NotificationTypeProgress && n.Status != nil {
		fmt.Printf("\r[%d] %s / %s", n.SequenceNo, formatMs(n.Status.PositionMs), formatMs(n.Status.DurationMs))
		return
	}

	fmt.Printf("\n[Sequence: %d] === %s ===\n", n.SequenceNo, strings.ToUpper(strings.ReplaceAll(n.Type, "_", " ")))
	if n.Status != nil {
		_ = printStatus(n.Status, nil)
	}
}

func printUsers(origin user.Location, users []*user.User) {
	if len(users) == 0 {
		fmt.Println("No users nearby")
		return
	}
	fmt.Printf("Nearby users (%d):\n", len(users))
	for _, u := range users {
		distance := "location unknown"
		if u.HasLocation() {
			distance = fmt.Sprintf("%.1f km", origin.DistanceKm(*u.Location))
		}
		fmt.Printf("  %-20s %-16s %d tracks\n", u.Username, distance, len(u.Tracks))
	}
}

func printTracks(title string, tracks []track.Track) {
	if len(tracks) == 0 {
		fmt.Printf("%s: none\n", title)
		return
	}
	fmt.Printf("%s (%d):\n", title, len(tracks))
	for _, t := range tracks {
		genre := t.Genre
		if genre == "" {
			genre = "-"
		}
		fmt.Printf("  [%s] %s (%s)\n", t.ID, t, genre)
	}
}

func formatMs(ms int64) string {
	d := (time.Duration(ms) * time.Millisecond).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
