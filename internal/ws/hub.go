// Package ws is the live update channel: one broadcast room per poll,
// fan-out of freshly projected tallies to every viewer of that poll.
package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/service"
)

type roomMessage struct {
	pollID  string
	payload []byte
}

// Hub maintains the per-poll rooms. It implements service.Broadcaster, so the
// vote service fans out through it regardless of whether the vote arrived
// over REST or over a live connection.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage

	votes    *service.VoteService
	presence *service.PresenceService

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex
}

func NewHub(votes *service.VoteService, presence *service.PresenceService) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
		votes:      votes,
		presence:   presence,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.ctx.Done():
			slog.Info("websocket hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// BroadcastVote implements service.Broadcaster. The enqueue never blocks the
// voting path; if the hub cannot keep up the event is dropped, which is safe
// because every event carries the full authoritative tally.
func (h *Hub) BroadcastVote(event models.VoteEvent) {
	payload, err := marshalVoteFrame(event)
	if err != nil {
		slog.Error("vote frame marshal failed", "pollID", event.PollID, "error", err)
		return
	}
	select {
	case h.broadcast <- roomMessage{pollID: event.PollID, payload: payload}:
	default:
		slog.Warn("broadcast queue full, dropping vote event", "pollID", event.PollID)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	room := h.rooms[client.pollHex]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[client.pollHex] = room
	}
	room[client] = true
	h.mu.Unlock()

	h.presence.AddViewer(h.ctx, client.pollHex, client.userID.Hex())
	slog.Info("viewer joined", "pollID", client.pollHex, "userID", client.userID.Hex(), "clientID", client.id)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.pollHex]
	if ok && room[client] {
		delete(room, client)
		client.closeSend()
		if len(room) == 0 {
			delete(h.rooms, client.pollHex)
		}
	}
	h.mu.Unlock()

	if ok {
		h.presence.RemoveViewer(h.ctx, client.pollHex, client.userID.Hex())
		slog.Info("viewer left", "pollID", client.pollHex, "userID", client.userID.Hex(), "clientID", client.id)
	}
}

// deliver fans a payload out to every member of the poll's room. Delivery is
// fire and forget: a viewer whose send buffer is full is dropped rather than
// allowed to stall the room.
func (h *Hub) deliver(msg roomMessage) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[msg.pollID]))
	for client := range h.rooms[msg.pollID] {
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		select {
		case client.send <- msg.payload:
		default:
			slog.Warn("dropping slow viewer", "pollID", msg.pollID, "clientID", client.id)
			h.unregisterClient(client)
		}
	}
}

// handleVote routes an inbound vote frame through the same vote service entry
// point as the REST path, then reports failures back to the submitter only.
// The access key presented at connect time is re-validated on every vote.
func (h *Hub) handleVote(client *Client, optionIndex int) {
	_, err := h.votes.CastVote(h.ctx, client.pollID, client.userID, optionIndex, client.accessKey)
	if err != nil {
		kind := service.KindOf(err)
		if kind == "" {
			slog.Error("vote failed", "pollID", client.pollHex, "userID", client.userID.Hex(), "error", err)
			client.trySend(marshalErrorFrame("INTERNAL", "failed to submit vote"))
			return
		}
		client.trySend(marshalErrorFrame(string(kind), err.Error()))
	}
	// Success needs no direct reply: the broadcast event carries the voter's
	// id, which is the confirmation.
}

// snapshot builds the join-time tally frame for a poll.
func (h *Hub) snapshot(ctx context.Context, client *Client) ([]byte, error) {
	current, options, err := h.votes.CurrentTally(ctx, client.pollID)
	if err != nil {
		return nil, err
	}
	return marshalTallyFrame(client.pollHex, current, options)
}

// RoomSize reports how many clients are connected to a poll's room.
func (h *Hub) RoomSize(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[pollID])
}
