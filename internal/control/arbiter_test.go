package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-editor/collab/internal/protocol"
)

// recordingSink captures the arbiter's side effects for assertions.
type recordingSink struct {
	sent      []uint8
	editable  []bool
	requested int
	declined  int
}

func (r *recordingSink) SendControl(msgType uint8) { r.sent = append(r.sent, msgType) }
func (r *recordingSink) ControlChanged(e bool)     { r.editable = append(r.editable, e) }
func (r *recordingSink) ControlRequested()         { r.requested++ }
func (r *recordingSink) ControlDeclined()          { r.declined++ }

func TestInitialStates(t *testing.T) {
	host := NewArbiter(RoleHost, &recordingSink{})
	client := NewArbiter(RoleClient, &recordingSink{})

	assert.Equal(t, LocallyHeld, host.State())
	assert.Equal(t, RemotelyHeld, client.State())
}

func TestEditable(t *testing.T) {
	assert.True(t, LocallyHeld.Editable())
	assert.True(t, GrantPending.Editable())
	assert.False(t, RemotelyHeld.Editable())
	assert.False(t, RequestPending.Editable())
}

// TestTransitions walks the full transition table one row at a time.
func TestTransitions(t *testing.T) {
	testCases := []struct {
		name      string
		role      Role
		from      State
		drive     func(a *Arbiter)
		want      State
		wantSent  []uint8
		wantEdit  []bool
		requested int
		declined  int
	}{
		{
			name:     "request control while viewing",
			role:     RoleClient,
			from:     RemotelyHeld,
			drive:    func(a *Arbiter) { a.RequestControl() },
			want:     RequestPending,
			wantSent: []uint8{protocol.TypeControlRequest},
		},
		{
			name:     "grant received while pending",
			role:     RoleClient,
			from:     RequestPending,
			drive:    func(a *Arbiter) { a.HandleMessage(protocol.TypeControlGranted) },
			want:     LocallyHeld,
			wantEdit: []bool{true},
		},
		{
			name:     "decline received while pending",
			role:     RoleClient,
			from:     RequestPending,
			drive:    func(a *Arbiter) { a.HandleMessage(protocol.TypeControlDeclined) },
			want:     RemotelyHeld,
			declined: 1,
		},
		{
			name:      "request received while holding",
			role:      RoleHost,
			from:      LocallyHeld,
			drive:     func(a *Arbiter) { a.HandleMessage(protocol.TypeControlRequest) },
			want:      GrantPending,
			requested: 1,
		},
		{
			name:     "local grant decision",
			role:     RoleHost,
			from:     GrantPending,
			drive:    func(a *Arbiter) { a.GrantControl() },
			want:     RemotelyHeld,
			wantSent: []uint8{protocol.TypeControlGranted},
			wantEdit: []bool{false},
		},
		{
			name:     "local decline decision",
			role:     RoleHost,
			from:     GrantPending,
			drive:    func(a *Arbiter) { a.DeclineControl() },
			want:     LocallyHeld,
			wantSent: []uint8{protocol.TypeControlDeclined},
		},
		{
			name:     "host reclaims by typing",
			role:     RoleHost,
			from:     RemotelyHeld,
			drive:    func(a *Arbiter) { a.LocalEdit() },
			want:     LocallyHeld,
			wantSent: []uint8{protocol.TypeControlRevoked},
			wantEdit: []bool{true},
		},
		{
			name:     "revoke received after being granted",
			role:     RoleClient,
			from:     LocallyHeld,
			drive:    func(a *Arbiter) { a.HandleMessage(protocol.TypeControlRevoked) },
			want:     RemotelyHeld,
			wantEdit: []bool{false},
		},
		{
			name:     "revoke received while already viewing",
			role:     RoleClient,
			from:     RemotelyHeld,
			drive:    func(a *Arbiter) { a.HandleMessage(protocol.TypeControlRevoked) },
			want:     RemotelyHeld,
			wantEdit: []bool{false},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			a := NewArbiter(tc.role, sink)
			a.state = tc.from

			tc.drive(a)

			assert.Equal(t, tc.want, a.State())
			assert.Equal(t, tc.wantSent, sink.sent)
			assert.Equal(t, tc.wantEdit, sink.editable)
			assert.Equal(t, tc.requested, sink.requested)
			assert.Equal(t, tc.declined, sink.declined)
		})
	}
}

// TestConflictsAreAbsorbed verifies that out-of-state events change nothing
// and transmit nothing: availability over strict violation detection.
func TestConflictsAreAbsorbed(t *testing.T) {
	testCases := []struct {
		name  string
		role  Role
		from  State
		drive func(a *Arbiter)
	}{
		{"request while already pending", RoleClient, RequestPending, func(a *Arbiter) { a.RequestControl() }},
		{"request while holding", RoleHost, LocallyHeld, func(a *Arbiter) { a.RequestControl() }},
		{"grant without pending request", RoleHost, LocallyHeld, func(a *Arbiter) { a.GrantControl() }},
		{"decline without pending request", RoleHost, LocallyHeld, func(a *Arbiter) { a.DeclineControl() }},
		{"granted message while holding", RoleHost, LocallyHeld, func(a *Arbiter) { a.HandleMessage(protocol.TypeControlGranted) }},
		{"declined message while holding", RoleHost, LocallyHeld, func(a *Arbiter) { a.HandleMessage(protocol.TypeControlDeclined) }},
		{"second peer request while grant pending", RoleHost, GrantPending, func(a *Arbiter) { a.HandleMessage(protocol.TypeControlRequest) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			a := NewArbiter(tc.role, sink)
			a.state = tc.from

			tc.drive(a)

			assert.Equal(t, tc.from, a.State())
			assert.Empty(t, sink.sent)
			assert.Empty(t, sink.editable)
			assert.Zero(t, sink.requested)
			assert.Zero(t, sink.declined)
		})
	}
}

// TestClientEditWithoutControlIsDropped verifies only the host may reclaim
// by typing.
func TestClientEditWithoutControlIsDropped(t *testing.T) {
	sink := &recordingSink{}
	a := NewArbiter(RoleClient, sink)

	require.False(t, a.LocalEdit())
	assert.Equal(t, RemotelyHeld, a.State())
	assert.Empty(t, sink.sent)
}

// linkedSink forwards control messages straight into the peer arbiter,
// simulating instant delivery between two mirrored arbiters.
type linkedSink struct {
	recordingSink
	peer **Arbiter
}

func (l *linkedSink) SendControl(msgType uint8) {
	l.recordingSink.SendControl(msgType)
	(*l.peer).HandleMessage(msgType)
}

// TestMirroredArbitersStayComplementary drives every exchange of the
// protocol through two linked arbiters and asserts the invariant: after each
// completed exchange the two states are complementary, and at no step do
// both sides hold control.
func TestMirroredArbitersStayComplementary(t *testing.T) {
	var host, client *Arbiter
	hostSink := &linkedSink{peer: &client}
	clientSink := &linkedSink{peer: &host}
	host = NewArbiter(RoleHost, hostSink)
	client = NewArbiter(RoleClient, clientSink)

	neverBoth := func() {
		t.Helper()
		require.False(t, host.State() == LocallyHeld && client.State() == LocallyHeld,
			"both sides hold control: host=%s client=%s", host.State(), client.State())
	}

	// Exchange 1: request → grant.
	client.RequestControl()
	neverBoth()
	host.GrantControl()
	neverBoth()
	assert.Equal(t, RemotelyHeld, host.State())
	assert.Equal(t, LocallyHeld, client.State())

	// Exchange 2: host reclaims by typing.
	host.LocalEdit()
	neverBoth()
	assert.Equal(t, LocallyHeld, host.State())
	assert.Equal(t, RemotelyHeld, client.State())

	// Exchange 3: request → decline keeps the holder.
	client.RequestControl()
	neverBoth()
	host.DeclineControl()
	neverBoth()
	assert.Equal(t, LocallyHeld, host.State())
	assert.Equal(t, RemotelyHeld, client.State())
	assert.Equal(t, 1, clientSink.declined)

	// Exchange 4: grant again, then the host asks for it back politely.
	client.RequestControl()
	host.GrantControl()
	host.RequestControl()
	neverBoth()
	client.GrantControl()
	neverBoth()
	assert.Equal(t, LocallyHeld, host.State())
	assert.Equal(t, RemotelyHeld, client.State())
}
