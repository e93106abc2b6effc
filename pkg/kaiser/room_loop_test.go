package kaiser

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRoomLoopBindAndSubmit(t *testing.T) {
	r := NewRoom(RoomConfig{ID: "loop", Seed: 1})
	defer r.Stop()
	ctx := context.Background()

	players := []string{"alice", "bob", "carol", "dave"}
	for i, p := range players {
		seat, err := r.Bind(ctx, p)
		if err != nil {
			t.Fatalf("Bind %s failed: %v", p, err)
		}
		if seat != i {
			t.Fatalf("Expected %s at seat %d, got %d", p, i, seat)
		}
	}

	for _, p := range players {
		if err := r.Submit(ctx, Action{PlayerID: p, Type: ActionReady}); err != nil {
			t.Fatalf("Ready for %s failed: %v", p, err)
		}
	}

	snap, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Phase != PhaseBetting {
		t.Fatalf("Expected BETTING, got %s", snap.Phase)
	}
	if snap.CardCount() != DeckSize {
		t.Errorf("Card count %d after deal", snap.CardCount())
	}

	// Out-of-turn rejection travels back through the queue.
	wrong := players[(snap.AwaitedSeat+1)%NumSeats]
	bet := Bet{Value: 7, Trump: Spades}
	err = r.Submit(ctx, Action{PlayerID: wrong, Type: ActionBet, Bet: &bet})
	if !errors.Is(err, ErrOutOfTurn) {
		t.Errorf("Expected ErrOutOfTurn, got %v", err)
	}
}

func TestRoomLoopStop(t *testing.T) {
	r := NewRoom(RoomConfig{ID: "stop", Seed: 1})
	r.Stop()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Loop did not stop")
	}

	ctx := context.Background()
	if err := r.Submit(ctx, Action{PlayerID: "x", Type: ActionReady}); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed, got %v", err)
	}
	if _, err := r.Bind(ctx, "x"); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed from Bind, got %v", err)
	}

	// Idempotent.
	r.Stop()
}

// With four bots and a target of one point, the first scored round always
// ends the game: the nine tricks plus counters total eleven points, so
// whichever way the contract goes one team finishes positive.
func TestRoomLoopAllBotGame(t *testing.T) {
	r := NewRoom(RoomConfig{
		ID:             "bots",
		Seed:           42,
		TargetScore:    1,
		SummaryTimeout: 20 * time.Millisecond,
		BotTier:        TierGreedy,
	})
	defer r.Stop()
	ctx := context.Background()

	events := make(chan RoomEvent, 512)
	r.SetEventChannel(events)

	for i := 0; i < NumSeats; i++ {
		if err := r.AddBot(ctx, i); err != nil {
			t.Fatalf("AddBot %d failed: %v", i, err)
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		snap, err := r.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.Phase == PhaseGameOver {
			if snap.WinnerTeam != 0 && snap.WinnerTeam != 1 {
				t.Fatalf("Game over without a winner: %d", snap.WinnerTeam)
			}
			if snap.Scores[snap.WinnerTeam] < 1 {
				t.Errorf("Winner below target: %v", snap.Scores)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Game never finished; stuck at %s round %d", snap.Phase, snap.Round)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The pipeline saw a game_over event.
	sawOver := false
	for {
		select {
		case ev := <-events:
			if ev.Type == EventGameOver {
				sawOver = true
			}
			continue
		default:
		}
		break
	}
	if !sawOver {
		t.Error("No game_over event published")
	}
}

// waitPhaseSnapshot drains published events until a phase change into
// phase arrives.
func waitPhaseSnapshot(t *testing.T, events <-chan RoomEvent, phase Phase) *Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == EventPhaseChanged && ev.Snapshot != nil && ev.Snapshot.Phase == phase {
				return ev.Snapshot
			}
		case <-deadline:
			t.Fatalf("No phase change into %s published", phase)
		}
	}
}

// A room rebuilt from the snapshots the event pipeline publishes must
// resume at the same decision point and survive the next deadline fire.
func TestRoomLoopRestoreFromPublishedSnapshot(t *testing.T) {
	r := NewRoom(RoomConfig{ID: "pub", Seed: 3})
	defer r.Stop()
	ctx := context.Background()

	events := make(chan RoomEvent, 256)
	r.SetEventChannel(events)

	players := []string{"alice", "bob", "carol", "dave"}
	for _, p := range players {
		if _, err := r.Bind(ctx, p); err != nil {
			t.Fatalf("Bind %s failed: %v", p, err)
		}
	}
	for _, p := range players {
		if err := r.Submit(ctx, Action{PlayerID: p, Type: ActionReady}); err != nil {
			t.Fatalf("Ready failed: %v", err)
		}
	}

	betting := waitPhaseSnapshot(t, events, PhaseBetting)
	if betting.AwaitedSeat != 1 {
		t.Fatalf("Betting snapshot awaits seat %d, expected 1", betting.AwaitedSeat)
	}

	bet := Bet{Value: 7, Trump: Spades}
	if err := r.Submit(ctx, Action{PlayerID: players[1], Type: ActionBet, Bet: &bet}); err != nil {
		t.Fatalf("Bet failed: %v", err)
	}
	for _, seat := range []int{2, 3, 0} {
		pass := Bet{Pass: true}
		if err := r.Submit(ctx, Action{PlayerID: players[seat], Type: ActionBet, Bet: &pass}); err != nil {
			t.Fatalf("Pass from seat %d failed: %v", seat, err)
		}
	}

	playing := waitPhaseSnapshot(t, events, PhasePlaying)
	if playing.Contract == nil || playing.AwaitedSeat != playing.Contract.Seat {
		t.Fatalf("Playing snapshot awaits seat %d, contract %v",
			playing.AwaitedSeat, playing.Contract)
	}

	// The restored auction awaits the same seat, and the first deadline
	// fire is survived: the disconnected human flips to a bot that bids.
	restored, err := RestoreRoom(RoomConfig{
		ID:         "pub-restored",
		Seed:       3,
		BetTimeout: 15 * time.Millisecond,
	}, betting)
	if err != nil {
		t.Fatalf("Restore from betting snapshot failed: %v", err)
	}
	defer restored.Stop()

	snap, err := restored.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Phase != PhaseBetting || snap.AwaitedSeat != 1 {
		t.Fatalf("Restored at %s awaiting seat %d, expected BETTING seat 1", snap.Phase, snap.AwaitedSeat)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err = restored.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot after deadline failed: %v", err)
		}
		if len(snap.Bets) > 0 || snap.Phase != PhaseBetting {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Restored room never progressed past the bet deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The play-phase snapshot restores with the contract holder on lead.
	resumed, err := RestoreRoom(RoomConfig{ID: "pub-playing", Seed: 3}, playing)
	if err != nil {
		t.Fatalf("Restore from playing snapshot failed: %v", err)
	}
	defer resumed.Stop()

	snap, err = resumed.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.AwaitedSeat != playing.Contract.Seat {
		t.Errorf("Resumed play awaits seat %d, expected contract holder %d",
			snap.AwaitedSeat, playing.Contract.Seat)
	}
}

// An action and the timer for the same decision race through the queue;
// whichever is applied first wins and the loser is dropped. Submitting
// at the same moment the deadline fires must never double-apply.
func TestRoomLoopActionTimerRace(t *testing.T) {
	r := NewRoom(RoomConfig{
		ID:          "race",
		Seed:        7,
		BetTimeout:  15 * time.Millisecond,
		PlayTimeout: time.Minute,
		MissedLimit: 100,
	})
	defer r.Stop()
	ctx := context.Background()

	players := []string{"alice", "bob", "carol", "dave"}
	for _, p := range players {
		if _, err := r.Bind(ctx, p); err != nil {
			t.Fatalf("Bind failed: %v", err)
		}
	}
	for _, p := range players {
		if err := r.Submit(ctx, Action{PlayerID: p, Type: ActionReady}); err != nil {
			t.Fatalf("Ready failed: %v", err)
		}
	}

	// Repeatedly submit a pass for the awaited seat right around the
	// deadline. The submit may win or lose against the timer fallback;
	// either way the room must stay consistent: one applied input per
	// decision point and an always-legal bet sequence.
	for i := 0; i < 20; i++ {
		snap, err := r.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.Phase != PhaseBetting {
			break
		}
		seat := snap.AwaitedSeat
		if seat < 0 {
			break
		}

		time.Sleep(12 * time.Millisecond)
		bet := Bet{Pass: true}
		err = r.Submit(ctx, Action{PlayerID: players[seat], Type: ActionBet, Bet: &bet})
		if err != nil && !errors.Is(err, ErrOutOfTurn) && !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("Unexpected submit error: %v", err)
		}

		after, err := r.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if after.CardCount() != DeckSize {
			t.Fatalf("Card count invariant broken: %d", after.CardCount())
		}
		var high *Bet
		for j := range after.Bets {
			b := after.Bets[j]
			if b.Pass {
				continue
			}
			if high != nil && !b.Beats(high) {
				t.Fatalf("Bet sequence corrupted at %d: %v does not outrank %v", j, b, *high)
			}
			high = &after.Bets[j]
		}
	}
}
