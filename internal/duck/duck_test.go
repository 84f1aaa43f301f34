package duck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinkInputs = `Sink Input #42
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #43
	Volume: mono: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "doula"
Sink Input #bogus
	Volume: mono: 52428 /  80% / -5.81 dB
Sink Input #44
	Driver: nothing useful
`

type fakeMixer struct {
	mu      sync.Mutex
	streams []Stream
	sets    map[int][]int
}

func (m *fakeMixer) List(context.Context) ([]Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Stream(nil), m.streams...), nil
}

func (m *fakeMixer) SetVolume(_ context.Context, id, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets == nil {
		m.sets = make(map[int][]int)
	}
	m.sets[id] = append(m.sets[id], percent)
	for i := range m.streams {
		if m.streams[i].ID == id {
			m.streams[i].Volume = percent
		}
	}
	return nil
}

func (m *fakeMixer) last(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.sets[id]
	return v[len(v)-1]
}

func TestParseSinkInputs(t *testing.T) {
	got := ParseSinkInputs(sinkInputs)
	assert.Equal(t, []Stream{
		{ID: 42, Volume: 100, AppName: "Firefox"},
		{ID: 43, Volume: 80, AppName: "doula"},
	}, got)

	assert.Nil(t, ParseSinkInputs(""))
}

func TestDuckAndRestore(t *testing.T) {
	m := &fakeMixer{streams: []Stream{
		{ID: 1, Volume: 100, AppName: "Firefox"},
		{ID: 2, Volume: 20, AppName: "Spotify"},
		{ID: 3, Volume: 90, AppName: "doula"},
	}}
	d := New(m, []string{"doula"}, 15)

	ctx := context.Background()
	require.NoError(t, d.Duck(ctx, 0.3, 0))
	assert.True(t, d.Active())

	assert.Equal(t, 30, m.last(1))
	assert.Equal(t, 15, m.last(2), "never below the floor")
	assert.NotContains(t, m.sets, 3)

	// ducking twice is a no-op
	require.NoError(t, d.Duck(ctx, 0.1, 0))
	assert.Equal(t, 30, m.last(1))

	// a stream that starts while ducked is left alone on restore
	m.streams = append(m.streams, Stream{ID: 4, Volume: 70, AppName: "mpv"})

	require.NoError(t, d.Restore(ctx, 0))
	assert.False(t, d.Active())
	assert.Equal(t, 100, m.last(1))
	assert.Equal(t, 20, m.last(2))
	assert.NotContains(t, m.sets, 4)

	require.NoError(t, d.Restore(ctx, 0))
}

func TestFadeSteps(t *testing.T) {
	m := &fakeMixer{streams: []Stream{{ID: 1, Volume: 100, AppName: "Firefox"}}}
	d := New(m, nil, 0)
	d.step = time.Millisecond

	require.NoError(t, d.Duck(context.Background(), 0.5, 4*time.Millisecond))
	assert.Equal(t, []int{88, 75, 63, 50}, m.sets[1])
}

func TestFadeCancelled(t *testing.T) {
	m := &fakeMixer{streams: []Stream{{ID: 1, Volume: 100, AppName: "Firefox"}}}
	d := New(m, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, d.Duck(ctx, 0.5, time.Second), context.Canceled)
	assert.True(t, d.Active())

	require.NoError(t, d.Restore(context.Background(), 0))
	assert.False(t, d.Active())
	assert.Equal(t, 100, m.last(1))
}

// cancellingMixer cancels the duck context after a few volume changes, as a
// reset does in the middle of a fade.
type cancellingMixer struct {
	fakeMixer
	after  int
	cancel context.CancelFunc
}

func (m *cancellingMixer) SetVolume(ctx context.Context, id, percent int) error {
	if err := m.fakeMixer.SetVolume(ctx, id, percent); err != nil {
		return err
	}
	m.mu.Lock()
	n := len(m.sets[id])
	m.mu.Unlock()
	if n == m.after {
		m.cancel()
	}
	return nil
}

func TestRestoreAfterInterruptedDuck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := &cancellingMixer{
		fakeMixer: fakeMixer{streams: []Stream{{ID: 1, Volume: 100, AppName: "Firefox"}}},
		after:     3,
		cancel:    cancel,
	}
	d := New(m, nil, 0)
	d.step = time.Millisecond

	err := d.Duck(ctx, 0.3, 30*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, m.last(1), 100)
	assert.Greater(t, m.last(1), 30)

	require.NoError(t, d.Restore(context.Background(), 0))
	assert.False(t, d.Active())
	assert.Equal(t, 100, m.last(1))
}
