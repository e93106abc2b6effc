package server

import (
	"github.com/decred/slog"

	"github.com/haldrik/kaiserd/pkg/kaiser"
)

// Notification is one outbound message to a single player: the event
// that happened plus the room state redacted to what that player may
// see.
type Notification struct {
	Type     kaiser.EventType
	RoomID   string
	Seat     int // acting seat, or -1
	PlayerID string
	View     *kaiser.Snapshot
}

// Broadcaster is the abstract outbound transport. Implementations must
// never block; a slow receiver drops its own messages.
type Broadcaster interface {
	Send(n Notification)
}

// LogBroadcaster logs notifications instead of delivering them. Used
// when no transport is wired.
type LogBroadcaster struct {
	log slog.Logger
}

// Send implements Broadcaster.
func (b *LogBroadcaster) Send(n Notification) {
	b.log.Debugf("notify %s: %s in room %s (seat %d)", n.PlayerID, n.Type, n.RoomID, n.Seat)
}

// NotificationHandler turns a room event into per-player notifications.
type NotificationHandler struct {
	server *Server
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(server *Server) *NotificationHandler {
	return &NotificationHandler{server: server}
}

// HandleEvent broadcasts the event's snapshot to every seated player,
// each redacted to their own seat. A player never receives another
// seat's hand or the deal seed.
func (h *NotificationHandler) HandleEvent(event kaiser.RoomEvent) {
	if event.Snapshot == nil {
		return
	}
	for _, seat := range event.Snapshot.Seats {
		if seat.Kind != kaiser.SeatHuman || seat.PlayerID == "" {
			continue
		}
		h.server.broadcaster.Send(Notification{
			Type:     event.Type,
			RoomID:   event.RoomID,
			Seat:     event.Seat,
			PlayerID: seat.PlayerID,
			View:     event.Snapshot.ViewFor(seat.Index),
		})
	}
}
