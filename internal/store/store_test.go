package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskcal/internal/model"
)

func sampleEvent(title string) model.Event {
	return model.Event{
		Title: title,
		Date:  model.Date{Year: 2024, Month: time.May, Day: 1},
		Start: model.MustTime(9, 0),
		End:   model.MustTime(9, 30),
		Color: "#112233",
	}
}

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	})
}

func TestEventStore_AddThenList(t *testing.T) {
	t.Parallel()

	s := New()
	in := sampleEvent("Standup")

	id, err := s.Add(in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got := s.List()
	require.Len(t, got, 1)
	want := in
	want.ID = id
	assert.Equal(t, want, got[0])
	assert.Equal(t, uint64(1), s.Snapshot().Version)
}

func TestEventStore_AddNormalizes(t *testing.T) {
	t.Parallel()

	s := New()
	in := sampleEvent("  Standup \t")
	in.Color = ""

	id, err := s.Add(in)
	require.NoError(t, err)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Title)
	assert.Equal(t, model.DefaultColor, got.Color)
	assert.Equal(t, in.Date, got.Date)
	assert.Equal(t, in.Start, got.Start)
	assert.Equal(t, in.End, got.End)
}

func TestEventStore_AddAssignsUniqueIDs(t *testing.T) {
	t.Parallel()

	s := New()
	a, err := s.Add(sampleEvent("same"))
	require.NoError(t, err)
	b, err := s.Add(sampleEvent("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.True(t, s.Remove(a))
	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].ID, "identical fields must not confuse identity")
}

func TestEventStore_AddRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := New()
	bad := sampleEvent("x")
	bad.End = bad.Start

	_, err := s.Add(bad)
	require.ErrorIs(t, err, model.ErrInvalidEvent)
	assert.Empty(t, s.List())
	assert.Equal(t, uint64(0), s.Snapshot().Version)
}

func TestEventStore_Update(t *testing.T) {
	t.Parallel()

	s := New(sequentialIDs())
	first, _ := s.Add(sampleEvent("first"))
	second, _ := s.Add(sampleEvent("second"))

	t.Run("replaces fields and keeps id and position", func(t *testing.T) {
		patch := sampleEvent("renamed")
		patch.ID = "ignored"
		patch.Start = model.MustTime(10, 0)
		patch.End = model.MustTime(11, 0)

		got, err := s.Update(first, patch)
		require.NoError(t, err)
		assert.Equal(t, first, got.ID)
		assert.Equal(t, "renamed", got.Title)

		list := s.List()
		require.Len(t, list, 2)
		assert.Equal(t, first, list[0].ID)
		assert.Equal(t, model.MustTime(10, 0), list[0].Start)
		assert.Equal(t, second, list[1].ID)
	})

	t.Run("unknown id leaves store unchanged", func(t *testing.T) {
		before := s.Snapshot()
		_, err := s.Update("missing", sampleEvent("x"))
		require.ErrorIs(t, err, model.ErrNotFound)
		assert.Same(t, before, s.Snapshot())
	})

	t.Run("invalid patch leaves store unchanged", func(t *testing.T) {
		before := s.List()
		patch := sampleEvent("")
		_, err := s.Update(first, patch)
		require.ErrorIs(t, err, model.ErrInvalidEvent)
		assert.Equal(t, before, s.List())
	})
}

func TestEventStore_Remove(t *testing.T) {
	t.Parallel()

	s := New()
	id, _ := s.Add(sampleEvent("gone"))

	assert.True(t, s.Remove(id))
	_, err := s.Get(id)
	assert.ErrorIs(t, err, model.ErrNotFound)

	version := s.Snapshot().Version
	assert.False(t, s.Remove(id))
	assert.Equal(t, version, s.Snapshot().Version)
}

func TestEventStore_SnapshotsAreImmutable(t *testing.T) {
	t.Parallel()

	s := New()
	id, _ := s.Add(sampleEvent("a"))
	old := s.Snapshot()

	_, err := s.Update(id, sampleEvent("b"))
	require.NoError(t, err)

	assert.Equal(t, "a", old.Events[0].Title)
	assert.Equal(t, "b", s.Snapshot().Events[0].Title)

	listed := s.List()
	listed[0].Title = "mutated by caller"
	assert.Equal(t, "b", s.Snapshot().Events[0].Title)
}

func TestEventStore_Replace(t *testing.T) {
	t.Parallel()

	var published []*Snapshot
	s := New(sequentialIDs(), WithOnChange(func(snap *Snapshot) {
		published = append(published, snap)
	}))

	keep := sampleEvent("keep")
	keep.ID = "fixed"
	dup := sampleEvent("dup")
	dup.ID = "fixed"

	require.NoError(t, s.Replace([]model.Event{keep, sampleEvent("fresh"), dup}))

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "fixed", list[0].ID)
	assert.Equal(t, "ev-1", list[1].ID)
	assert.Equal(t, "ev-2", list[2].ID)
	require.Len(t, published, 1)

	bad := sampleEvent("")
	require.Error(t, s.Replace([]model.Event{bad}))
	assert.Len(t, s.List(), 3)
}

func TestEventStore_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	s := New()
	const writers, perWriter = 8, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Add(sampleEvent("load"))
				assert.NoError(t, err)
				_ = s.List()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.List(), writers*perWriter)
	assert.Equal(t, uint64(writers*perWriter), s.Snapshot().Version)
}
