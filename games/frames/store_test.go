/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package frames

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	files, err := NewFileBackend(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "framematch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   files,
		"sqlite": db,
	}
}

func TestBackendRoundTrip(t *testing.T) {
	states := []State{
		{Matched: []int{}},
		{UserName: "Ada", Score: 13, Streak: 2, Matched: []int{1, 2, 3}},
		{UserName: "Grace", Score: 0, Streak: 0, SelectedTitle: 4, Matched: []int{2}},
		{UserName: "Linus", Score: 61, Streak: 11, SelectedFrame: 7, Matched: []int{9, 1, 5}},
	}

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store, err := b.Slot(DefaultSlot)
			require.NoError(t, err)

			_, err = store.Load()
			assert.ErrorIs(t, err, ErrNoSnapshot)

			for _, s := range states {
				require.NoError(t, store.Save(s))

				got, err := store.Load()
				require.NoError(t, err)
				assert.True(t, s.Equal(got), "saved %+v, loaded %+v", s, got)
			}

			require.NoError(t, store.Purge())
			_, err = store.Load()
			assert.ErrorIs(t, err, ErrNoSnapshot)

			require.NoError(t, store.Purge(), "purging an empty slot")
		})
	}
}

func TestBackendSlotsAreIndependent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			one, err := b.Slot("one")
			require.NoError(t, err)
			two, err := b.Slot("two")
			require.NoError(t, err)

			require.NoError(t, one.Save(State{UserName: "Ada", Score: 5, Matched: []int{1}}))

			_, err = two.Load()
			assert.ErrorIs(t, err, ErrNoSnapshot)

			require.NoError(t, two.Save(State{UserName: "Grace", Matched: []int{}}))
			require.NoError(t, one.Purge())

			got, err := two.Load()
			require.NoError(t, err)
			assert.Equal(t, "Grace", got.UserName)
		})
	}
}

func TestInvalidSlotNames(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, slot := range []string{"", "../escape", "a b", "slot.json", strings.Repeat("x", 129)} {
				_, err := b.Slot(slot)
				assert.ErrorIs(t, err, ErrInvalidSlot, "slot %q", slot)
			}
		})
	}
}

func TestFileBackendFormat(t *testing.T) {
	dir := t.TempDir()

	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	store, err := b.Slot(DefaultSlot)
	require.NoError(t, err)

	require.NoError(t, store.Save(State{UserName: "Ada", Score: 5, Streak: 1, Matched: []int{3}}))

	data, err := os.ReadFile(filepath.Join(dir, DefaultSlot+".json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"userName":"Ada","score":5,"streak":1,"matchedPairs":[3]}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileBackendMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("[1,2"), 0o644))

	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	store, err := b.Slot("broken")
	require.NoError(t, err)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestDecodeBrowserSnapshot(t *testing.T) {
	raw := `{"userName":"Ada","score":12,"streak":1,"selectedMovie":null,"selectedFrame":null,"matchedPairs":[4,7]}`

	s, err := decodeState([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, State{UserName: "Ada", Score: 12, Streak: 1, Matched: []int{4, 7}}, s)
}

func TestSanitize(t *testing.T) {
	c := smallCatalog(t, 4)

	got := State{
		UserName:      "Ada",
		Score:         -3,
		Streak:        -1,
		SelectedTitle: 2,
		Matched:       []int{1, 2, 2, 99, 3},
	}.sanitize(c)

	assert.Equal(t, State{UserName: "Ada", Matched: []int{1, 2, 3}}, got)

	got = State{SelectedTitle: 1, SelectedFrame: 2, Matched: []int{}}.sanitize(c)
	assert.Equal(t, None, got.SelectedTitle)
	assert.Equal(t, None, got.SelectedFrame)

	got = State{SelectedFrame: 4, Matched: []int{1}}.sanitize(c)
	assert.Equal(t, 4, got.SelectedFrame)
}

func TestDiscard(t *testing.T) {
	require.NoError(t, Discard.Save(State{Score: 5}))
	_, err := Discard.Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.NoError(t, Discard.Purge())
}
