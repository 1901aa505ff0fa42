package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskcal/internal/model"
)

func setupTestFile(t *testing.T) (*File, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "state.bolt")
	f, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := f.Close(); err != nil {
			t.Logf("failed to close state file: %v", err)
		}
	})
	return f, path
}

func TestFile_LoadEmpty(t *testing.T) {
	f, _ := setupTestFile(t)

	saved, err := f.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestFile_SaveLoadAcrossReopen(t *testing.T) {
	f, path := setupTestFile(t)

	events := []model.Event{{
		ID:    "abc",
		Title: "Standup",
		Date:  model.Date{Year: 2024, Month: time.May, Day: 1},
		Start: model.MustTime(9, 0),
		End:   model.MustTime(9, 30),
		Color: "#3b82f6",
	}}
	require.NoError(t, f.Save(7, events))
	require.NoError(t, f.Save(8, events))
	require.NoError(t, f.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	saved, err := reopened.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, uint64(8), saved.Version)
	assert.Equal(t, events, saved.Events)
	assert.False(t, saved.SavedAt.IsZero())
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
