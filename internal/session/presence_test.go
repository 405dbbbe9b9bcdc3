package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
)

func testPeers() []models.Peer {
	return []models.Peer{
		{ID: "u1", Name: "Alice", Email: "alice@example.com"},
		{ID: "u2", Name: "Bob", Email: "bob@example.com"},
		{ID: "u3", Name: "Carol", Email: "carol@example.com"},
	}
}

func TestTrackerExcludesSelf(t *testing.T) {
	tr := NewTracker()
	tr.SetPeers(testPeers(), "u1")

	peers := tr.Peers()
	require.Len(t, peers, 2)
	assert.Equal(t, "u2", peers[0].ID)
	assert.Equal(t, "u3", peers[1].ID)

	_, ok := tr.Peer("u1")
	assert.False(t, ok)
}

func TestTrackerSnapshotIsFullReplace(t *testing.T) {
	tr := NewTracker()
	tr.SetPeers(testPeers(), "u1")

	tr.ApplySnapshot([]string{"u2", "u3"})
	peers := tr.Peers()
	assert.True(t, peers[0].IsOnline)
	assert.True(t, peers[1].IsOnline)

	// Absence from the snapshot means offline, no per-peer deltas.
	tr.ApplySnapshot([]string{"u3"})
	peers = tr.Peers()
	assert.False(t, peers[0].IsOnline)
	assert.True(t, peers[1].IsOnline)

	tr.ApplySnapshot(nil)
	for _, p := range tr.Peers() {
		assert.False(t, p.IsOnline)
	}
}

func TestTrackerSnapshotIgnoresUnknownIDs(t *testing.T) {
	tr := NewTracker()
	tr.SetPeers(testPeers(), "u1")

	tr.ApplySnapshot([]string{"u2", "u99"})
	peers := tr.Peers()
	assert.True(t, peers[0].IsOnline)
	assert.False(t, peers[1].IsOnline)
}

func TestTrackerSearch(t *testing.T) {
	tr := NewTracker()
	tr.SetPeers(testPeers(), "u1")

	results := tr.Search("bo")
	require.Len(t, results, 1)
	assert.Equal(t, "u2", results[0].ID)

	results = tr.Search("EXAMPLE.COM")
	assert.Len(t, results, 2)

	assert.Len(t, tr.Search(""), 2)
	assert.Empty(t, tr.Search("nobody"))
}

func TestTrackerSetPeersResetsOnline(t *testing.T) {
	tr := NewTracker()
	tr.SetPeers(testPeers(), "u1")
	tr.ApplySnapshot([]string{"u2"})

	tr.SetPeers(testPeers(), "u1")
	for _, p := range tr.Peers() {
		assert.False(t, p.IsOnline)
	}
}
