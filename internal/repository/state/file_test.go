package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wakeup-call/internal/domain/wake"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns equal state.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "state.json")
	repo := NewFileRepository(file)

	fireAt := time.Now().Add(9 * time.Hour).UTC().Truncate(time.Second)
	want := &wake.State{
		Settings: wake.Settings{
			Enabled: true,
			Time:    wake.TimeOfDay{Hour: 6, Minute: 30},
			Sound:   wake.SoundChime,
		},
		Pending: &wake.Trigger{
			ID:     "5a7c9b4e-6d1f-4f6a-8a54-1f1b5b2f9d42",
			FireAt: fireAt,
			Sound:  wake.SoundChime,
			Handle: "reg-42",
		},
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Settings, got.Settings)
	require.Equal(t, want.Pending.ID, got.Pending.ID)
	require.Equal(t, want.Pending.Handle, got.Pending.Handle)
	require.Equal(t, want.Pending.FireAt.Unix(), got.Pending.FireAt.Unix())

	_, err = os.Stat(file)
	require.NoError(t, err)
}

// TestFileRepository_SaveOverwrites ensures a second Save replaces the first.
func TestFileRepository_SaveOverwrites(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "state.json")
	repo := NewFileRepository(file)

	first := &wake.State{
		Settings: wake.Settings{Enabled: true, Sound: wake.SoundClassic},
		Pending:  &wake.Trigger{ID: "first", Handle: "reg-1"},
	}
	require.NoError(t, repo.Save(context.Background(), first))

	second := &wake.State{
		Settings: wake.Settings{Enabled: false, Sound: wake.SoundClassic},
	}
	require.NoError(t, repo.Save(context.Background(), second))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.False(t, got.Settings.Enabled)
	require.Nil(t, got.Pending)
}
