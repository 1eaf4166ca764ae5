package docsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-editor/collab/internal/protocol"
)

func TestLocalChangeStampsMonotonicRevisions(t *testing.T) {
	e := NewEngine()

	first := e.LocalChange("a")
	second := e.LocalChange("ab")
	third := e.LocalChange("abc")

	assert.Equal(t, uint64(1), first.Revision)
	assert.Equal(t, uint64(2), second.Revision)
	assert.Equal(t, uint64(3), third.Revision)
	assert.Equal(t, "abc", e.Content())
}

func TestApplyRemote(t *testing.T) {
	e := NewEngine()

	content, applied := e.ApplyRemote(protocol.NewTextUpdate("hello", 5))
	require.True(t, applied)
	assert.Equal(t, "hello", content)
	assert.Equal(t, uint64(5), e.Revision())
}

// TestStaleUpdateIsDropped verifies the idempotence guard: applying rev 5
// then rev 5 again leaves the buffer unchanged after the second, and lower
// revisions never rewind it.
func TestStaleUpdateIsDropped(t *testing.T) {
	e := NewEngine()

	_, applied := e.ApplyRemote(protocol.NewTextUpdate("rev five", 5))
	require.True(t, applied)

	_, applied = e.ApplyRemote(protocol.NewTextUpdate("duplicate", 5))
	assert.False(t, applied)
	assert.Equal(t, "rev five", e.Content())

	_, applied = e.ApplyRemote(protocol.NewTextUpdate("older", 3))
	assert.False(t, applied)
	assert.Equal(t, "rev five", e.Content())

	content, applied := e.ApplyRemote(protocol.NewTextUpdate("newer", 6))
	require.True(t, applied)
	assert.Equal(t, "newer", content)
}

// TestRevisionContinuesAcrossHandoff verifies a newly granted holder
// continues the revision sequence instead of restarting at 1 — otherwise its
// first updates would be dropped as stale by the peer.
func TestRevisionContinuesAcrossHandoff(t *testing.T) {
	e := NewEngine()

	_, applied := e.ApplyRemote(protocol.NewTextUpdate("peer wrote this", 7))
	require.True(t, applied)

	msg := e.LocalChange("now mine")
	assert.Equal(t, uint64(8), msg.Revision)
}

func TestReset(t *testing.T) {
	e := NewEngine()
	e.LocalChange("something")
	_, _ = e.ApplyRemote(protocol.NewTextUpdate("other", 9))

	e.Reset()

	assert.Empty(t, e.Content())
	assert.Zero(t, e.Revision())

	// After a reset the staleness floor is gone too.
	_, applied := e.ApplyRemote(protocol.NewTextUpdate("fresh session", 1))
	assert.True(t, applied)
}
