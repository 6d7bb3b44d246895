package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/filestore"
	"github.com/tunzy-shop/tunzy-session/internal/domain"
)

// seed creates an old unlinked, an old linked and a fresh session, returning the clock
// positioned two days after the first one.
func seed(t *testing.T) (string, *clockwork.FakeClock) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "sessions")
	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	store := filestore.NewStore(dir, clock)
	require.NoError(t, store.EnsureRoot())
	ctx := context.Background()

	_, err := store.Create(ctx, "tunzymd2_old", domain.ModePair)
	require.NoError(t, err)
	_, err = store.Create(ctx, "tunzymd2_linked", domain.ModeQR)
	require.NoError(t, err)
	require.NoError(t, store.MarkLinked("tunzymd2_linked", clock.Now()))

	clock.Advance(47 * time.Hour)
	_, err = store.Create(ctx, "tunzymd2_fresh", domain.ModeQR)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	return dir, clock
}

func run(t *testing.T, clock clockwork.Clock, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(clock)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func remaining(t *testing.T, dir string, clock clockwork.Clock) []string {
	t.Helper()
	list, err := filestore.NewStore(dir, clock).List()
	require.NoError(t, err)
	var ids []string
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestList(t *testing.T) {
	dir, clock := seed(t)

	out := run(t, clock, "list", "--dir", dir)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "tunzymd2_old")
	assert.Contains(t, out, "48h0m0s")
	assert.Contains(t, out, "tunzymd2_fresh")
}

func TestPrune_KeepsLinkedByDefault(t *testing.T) {
	dir, clock := seed(t)

	run(t, clock, "prune", "--dir", dir, "--older-than", "24h")

	assert.ElementsMatch(t, []string{"tunzymd2_linked", "tunzymd2_fresh"}, remaining(t, dir, clock))
}

func TestPrune_IncludeLinked(t *testing.T) {
	dir, clock := seed(t)

	run(t, clock, "prune", "--dir", dir, "--older-than", "24h", "--include-linked")

	assert.Equal(t, []string{"tunzymd2_fresh"}, remaining(t, dir, clock))
}

func TestPrune_DryRun(t *testing.T) {
	dir, clock := seed(t)

	out := run(t, clock, "prune", "--dir", dir, "--dry-run", "--include-linked")

	assert.Contains(t, out, "would remove tunzymd2_old")
	assert.Contains(t, out, "would remove tunzymd2_linked")
	assert.Len(t, remaining(t, dir, clock), 3)
}

func TestPrune_RejectsNonPositiveAge(t *testing.T) {
	dir, clock := seed(t)
	cmd := newRootCmd(clock)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"prune", "--dir", dir, "--older-than", "0s"})

	assert.Error(t, cmd.Execute())
	assert.Len(t, remaining(t, dir, clock), 3)
}

func TestStaleSessions(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	sessions := []domain.SessionMetadata{
		{ID: "a", CreatedAt: now.Add(-25 * time.Hour)},
		{ID: "b", CreatedAt: now.Add(-24 * time.Hour)},
		{ID: "c", CreatedAt: now.Add(-30 * time.Hour), Linked: true},
	}

	got := staleSessions(sessions, now, 24*time.Hour, false)

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}
