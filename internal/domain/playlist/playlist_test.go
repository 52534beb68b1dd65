package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunemap/internal/domain/track"
)

func TestPlaylist_Add(t *testing.T) {
	tests := []struct {
		name     string
		initial  []track.Track
		add      track.Track
		added    bool
		expected []string
	}{
		{
			name:     "empty playlist",
			initial:  nil,
			add:      track.Track{ID: "1"},
			added:    true,
			expected: []string{"1"},
		},
		{
			name:     "appends at the end",
			initial:  []track.Track{{ID: "1"}, {ID: "2"}},
			add:      track.Track{ID: "3"},
			added:    true,
			expected: []string{"1", "2", "3"},
		},
		{
			name:     "duplicate id is a no-op",
			initial:  []track.Track{{ID: "1"}, {ID: "2"}},
			add:      track.Track{ID: "1", Title: "other metadata"},
			added:    false,
			expected: []string{"1", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.initial...)
			assert.Equal(t, tt.added, p.Add(tt.add))
			assert.Equal(t, tt.expected, p.TrackIDs())
		})
	}
}

func TestPlaylist_NewSkipsDuplicates(t *testing.T) {
	p := New(track.Track{ID: "1"}, track.Track{ID: "1"}, track.Track{ID: "2"})
	assert.Equal(t, []string{"1", "2"}, p.TrackIDs())
}

func TestPlaylist_IndexOfAndAt(t *testing.T) {
	p := New(track.Track{ID: "a"}, track.Track{ID: "b"})

	assert.Equal(t, 1, p.IndexOf("b"))
	assert.Equal(t, -1, p.IndexOf("z"))
	assert.True(t, p.Contains("a"))

	got, ok := p.At(0)
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	_, ok = p.At(2)
	assert.False(t, ok)
	_, ok = p.At(-1)
	assert.False(t, ok)
}

func TestPlaylist_TracksIsCopy(t *testing.T) {
	p := New(track.Track{ID: "a"})
	tracks := p.Tracks()
	tracks[0].ID = "mutated"

	assert.Equal(t, []string{"a"}, p.TrackIDs())
}

func TestPlaylist_Clear(t *testing.T) {
	p := New(track.Track{ID: "a"}, track.Track{ID: "b"})
	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.True(t, p.Add(track.Track{ID: "a"}))
}

func TestQueue_PushPop(t *testing.T) {
	q := NewQueue()
	assert.True(t, q.Push(track.Track{ID: "1"}))
	assert.True(t, q.Push(track.Track{ID: "2"}))
	assert.False(t, q.Push(track.Track{ID: "1"}))
	assert.Equal(t, 2, q.Len())

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "1", first.ID)

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "2", second.ID)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_PopThenPushSameID(t *testing.T) {
	q := NewQueue()
	q.Push(track.Track{ID: "1"})
	_, _ = q.Pop()

	assert.True(t, q.Push(track.Track{ID: "1"}))
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue()
	q.Push(track.Track{ID: "1"})
	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Tracks())
}
