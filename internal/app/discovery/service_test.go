package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/domain/user"
)

type fakeLocator struct {
	loc   user.Location
	err   error
	block chan struct{} // when set, Locate waits on it and ignores ctx
}

func (f *fakeLocator) Locate(ctx context.Context) (user.Location, error) {
	if f.block != nil {
		<-f.block
	}
	return f.loc, f.err
}

func (f *fakeLocator) Name() string {
	return "fake"
}

type fakeBackend struct {
	users       []*user.User
	nearbyErr   error
	updateErr   error
	updated     []user.Location
	nearbyCalls []float64
}

func (f *fakeBackend) NearbyUsers(ctx context.Context, loc user.Location, radiusKm float64) ([]*user.User, error) {
	f.nearbyCalls = append(f.nearbyCalls, radiusKm)
	return f.users, f.nearbyErr
}

func (f *fakeBackend) UpdateLocation(ctx context.Context, loc user.Location) (*user.User, error) {
	f.updated = append(f.updated, loc)
	return &user.User{}, f.updateErr
}

type playlistSource []track.Track

func (p playlistSource) Tracks() []track.Track {
	return p
}

func TestLocate_Success(t *testing.T) {
	svc := New(&fakeLocator{loc: user.Location{Latitude: 35.6, Longitude: 139.7}}, Config{})

	got := svc.Locate(context.Background())
	assert.InDelta(t, 35.6, got.Location.Latitude, 1e-9)
	assert.False(t, got.Location.Fallback)
	assert.Empty(t, got.Warning)
}

func TestLocate_FailureFallsBack(t *testing.T) {
	svc := New(&fakeLocator{err: errors.New("denied")}, Config{FallbackMessage: "using default"})

	got := svc.Locate(context.Background())
	assert.True(t, got.Location.Fallback)
	assert.InDelta(t, 51.505, got.Location.Latitude, 1e-9)
	assert.InDelta(t, -0.09, got.Location.Longitude, 1e-9)
	assert.Equal(t, "using default", got.Warning)
}

func TestLocate_TimeoutFallsBack(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	def := user.Location{Latitude: 1, Longitude: 2}
	svc := New(&fakeLocator{block: block}, Config{Timeout: 20 * time.Millisecond, Default: &def})

	start := time.Now()
	got := svc.Locate(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, got.Location.Fallback)
	assert.InDelta(t, 1.0, got.Location.Latitude, 1e-9)
	assert.NotEmpty(t, got.Warning)
}

func TestPublish(t *testing.T) {
	svc := New(&fakeLocator{}, Config{})
	b := &fakeBackend{updateErr: errors.New("boom")}

	// Failures are swallowed
	svc.Publish(context.Background(), b, user.Location{Latitude: 3})
	require.Len(t, b.updated, 1)

	svc.Publish(context.Background(), b, user.Location{Latitude: 3, Fallback: true})
	assert.Len(t, b.updated, 1)
}

func TestNearby_SortsByDistance(t *testing.T) {
	here := user.Location{Latitude: 51.5, Longitude: -0.1}
	b := &fakeBackend{users: []*user.User{
		{ID: "far", Location: &user.Location{Latitude: 51.6, Longitude: -0.1}},
		{ID: "none"},
		{ID: "near", Location: &user.Location{Latitude: 51.501, Longitude: -0.1}},
	}}
	svc := New(&fakeLocator{}, Config{RadiusKm: 10})

	users, err := svc.Nearby(context.Background(), b, here)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, b.nearbyCalls)

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"near", "far", "none"}, ids)
}

func TestNearby_Error(t *testing.T) {
	svc := New(&fakeLocator{}, Config{})
	_, err := svc.Nearby(context.Background(), &fakeBackend{nearbyErr: errors.New("down")}, user.Location{})
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	b := &fakeBackend{users: []*user.User{
		{ID: "1", Tracks: []track.Track{{ID: "10", Title: "Mine", Genre: "rock", Locator: "a.mp3", OwnerID: "1"}}},
		{ID: "2", Tracks: []track.Track{
			{ID: "20", Title: "Jazz One", Artist: "A", Genre: "jazz", Locator: "b.mp3", OwnerID: "2"},
			{ID: "21", Title: "Rock One", Artist: "A", Genre: "rock", Locator: "c.mp3", OwnerID: "2"},
			{ID: "22", Title: "Jazz Two", Artist: "A", Genre: "jazz", Locator: "d.mp3", OwnerID: "2"},
		}},
	}}
	svc := New(&fakeLocator{loc: user.Location{Latitude: 10, Longitude: 20}}, Config{Genres: []string{"jazz", "rock"}})

	d, err := svc.Discover(context.Background(), b, "1", playlistSource{{ID: "22"}})
	require.NoError(t, err)
	assert.False(t, d.Location.Fallback)
	assert.Len(t, b.updated, 1)
	assert.Len(t, d.Users, 2)

	ids := make([]string, 0, len(d.Tracks))
	for _, tr := range d.Tracks {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"20", "21"}, ids)
}

func TestDiscover_NearbyFailureKeepsLocation(t *testing.T) {
	b := &fakeBackend{nearbyErr: errors.New("down")}
	svc := New(&fakeLocator{err: errors.New("denied")}, Config{})

	d, err := svc.Discover(context.Background(), b, "", nil)
	assert.Error(t, err)
	require.NotNil(t, d)
	assert.True(t, d.Location.Fallback)
	assert.NotEmpty(t, d.Warning)
	assert.Empty(t, b.updated)
}
