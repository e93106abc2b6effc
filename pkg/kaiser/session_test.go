package kaiser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionBindCreatesSession(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, time.Minute)
	defer sm.Close()

	sess, err := sm.Bind(context.Background(), room, "alice", "conn-1")
	require.NoError(t, err)
	require.Equal(t, "alice", sess.PlayerID)
	require.Equal(t, "conn-1", sess.ConnID)
	require.Equal(t, 0, sess.Seat)
	require.NotEmpty(t, sess.ID)

	require.Same(t, sess, sm.Lookup("alice"))
	require.Nil(t, sm.Lookup("bob"))
}

func TestSessionRebindReplacesConn(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, time.Minute)
	defer sm.Close()
	ctx := context.Background()

	first, err := sm.Bind(ctx, room, "alice", "conn-1")
	require.NoError(t, err)

	second, err := sm.Bind(ctx, room, "alice", "conn-2")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "rebind must keep the session identity")
	require.Equal(t, "conn-2", second.ConnID)
	require.Equal(t, first.Seat, second.Seat)
}

func TestSessionGraceExpiryHandsSeatToBot(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, 30*time.Millisecond)
	defer sm.Close()
	ctx := context.Background()

	players := []string{"alice", "bob", "carol", "dave"}
	for _, p := range players {
		_, err := sm.Bind(ctx, room, p, "conn-"+p)
		require.NoError(t, err)
	}
	for _, p := range players {
		require.NoError(t, room.Submit(ctx, Action{PlayerID: p, Type: ActionReady}))
	}

	sm.MarkDisconnected(room, "bob", "conn-bob")

	require.Eventually(t, func() bool {
		snap, err := room.Snapshot(ctx)
		return err == nil && snap.Seats[1].Kind == SeatBot
	}, 2*time.Second, 10*time.Millisecond, "grace expiry never promoted the bot")

	// Late rebind reclaims the seat with its hand intact.
	sess, err := sm.Bind(ctx, room, "bob", "conn-bob-2")
	require.NoError(t, err)
	require.Equal(t, 1, sess.Seat)

	snap, err := room.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, SeatHuman, snap.Seats[1].Kind)
	require.Len(t, snap.Seats[1].Hand, HandSize)
}

func TestSessionReconnectBeforeExpiryKeepsSeat(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, 80*time.Millisecond)
	defer sm.Close()
	ctx := context.Background()

	players := []string{"alice", "bob", "carol", "dave"}
	for _, p := range players {
		_, err := sm.Bind(ctx, room, p, "conn-"+p)
		require.NoError(t, err)
	}
	for _, p := range players {
		require.NoError(t, room.Submit(ctx, Action{PlayerID: p, Type: ActionReady}))
	}

	sm.MarkDisconnected(room, "carol", "conn-carol")
	_, err := sm.Bind(ctx, room, "carol", "conn-carol-2")
	require.NoError(t, err)

	// Wait past the original grace window; the cancelled timer and the
	// staleness check in the room both protect the seat.
	time.Sleep(150 * time.Millisecond)
	snap, err := room.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, SeatHuman, snap.Seats[2].Kind)
	require.True(t, snap.Seats[2].Connected)
}

func TestSessionStaleDisconnectIgnored(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, 20*time.Millisecond)
	defer sm.Close()
	ctx := context.Background()

	_, err := sm.Bind(ctx, room, "alice", "conn-1")
	require.NoError(t, err)
	_, err = sm.Bind(ctx, room, "alice", "conn-2")
	require.NoError(t, err)

	// A disconnect from the replaced connection must not start a grace
	// window against the live one.
	sm.MarkDisconnected(room, "alice", "conn-1")
	time.Sleep(60 * time.Millisecond)

	snap, err := room.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, SeatHuman, snap.Seats[0].Kind)
	require.True(t, snap.Seats[0].Connected)
}

func TestSessionDrop(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, time.Minute)
	defer sm.Close()

	_, err := sm.Bind(context.Background(), room, "alice", "conn-1")
	require.NoError(t, err)

	sm.Drop("alice")
	require.Nil(t, sm.Lookup("alice"))
}

func TestSessionHeartbeat(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, time.Minute)
	defer sm.Close()

	sess, err := sm.Bind(context.Background(), room, "alice", "conn-1")
	require.NoError(t, err)
	first := sess.LastSeen()
	require.False(t, first.IsZero())

	time.Sleep(5 * time.Millisecond)
	sm.Heartbeat("alice", "conn-1")
	require.True(t, sess.LastSeen().After(first))

	// Heartbeats from a replaced connection are ignored.
	seen := sess.LastSeen()
	time.Sleep(5 * time.Millisecond)
	sm.Heartbeat("alice", "conn-stale")
	require.Equal(t, seen, sess.LastSeen())
}

func TestSessionLeaveVacatesSeatBeforeStart(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, time.Minute)
	defer sm.Close()
	ctx := context.Background()

	_, err := sm.Bind(ctx, room, "alice", "conn-a")
	require.NoError(t, err)
	_, err = sm.Bind(ctx, room, "bob", "conn-b")
	require.NoError(t, err)

	sm.Leave(room, "bob")
	require.Nil(t, sm.Lookup("bob"))

	require.Eventually(t, func() bool {
		snap, err := room.Snapshot(ctx)
		return err == nil && snap.Seats[1].Kind == SeatVacant && snap.Seats[1].PlayerID == ""
	}, 2*time.Second, 10*time.Millisecond, "leaving before the game starts must vacate the seat")

	// The freed seat is open to a new player.
	sess, err := sm.Bind(ctx, room, "carol", "conn-c")
	require.NoError(t, err)
	require.Equal(t, 1, sess.Seat)
}

func TestSessionLeaveMidGameHandsSeatToBot(t *testing.T) {
	room := NewRoom(RoomConfig{ID: "s", Seed: 1})
	defer room.Stop()
	sm := NewSessionManager(nil, time.Minute)
	defer sm.Close()
	ctx := context.Background()

	players := []string{"alice", "bob", "carol", "dave"}
	for _, p := range players {
		_, err := sm.Bind(ctx, room, p, "conn-"+p)
		require.NoError(t, err)
	}
	for _, p := range players {
		require.NoError(t, room.Submit(ctx, Action{PlayerID: p, Type: ActionReady}))
	}

	sm.Leave(room, "carol")

	require.Eventually(t, func() bool {
		snap, err := room.Snapshot(ctx)
		return err == nil && snap.Seats[2].Kind == SeatBot
	}, 2*time.Second, 10*time.Millisecond, "leaving mid-game must hand the seat to a bot")

	// The hand survives the takeover and a later rebind reclaims it.
	snap, err := room.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Seats[2].Hand, HandSize)

	sess, err := sm.Bind(ctx, room, "carol", "conn-carol-2")
	require.NoError(t, err)
	require.Equal(t, 2, sess.Seat)
}
