package ws

import (
	"encoding/json"
	"log"
	"time"

	"chatrelay/internal/models"
	"chatrelay/internal/presence"
	"chatrelay/internal/store"
)

// frame is an inbound event together with the connection it arrived on.
type frame struct {
	client *Client
	event  Event
}

// roomEvent is a fanout request for one chat's subscribers. exclude, when
// set, skips the originating connection (typing indicators).
type roomEvent struct {
	chatID  int
	event   Event
	exclude *Client
}

type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Chat room subscriptions, keyed by chat id.
	rooms map[int]map[*Client]bool

	// Inbound events from the clients.
	frames chan frame

	// Room fanout requests. Delivery timers feed this from outside the loop.
	broadcast chan roomEvent

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	store    store.Store
	presence *presence.Tracker

	// How long after broadcast a message is flipped to delivered. This is a
	// simulated latency, not an acknowledgement: it fires whether or not any
	// recipient is connected.
	deliveryDelay time.Duration
}

func NewHub(store store.Store, tracker *presence.Tracker, deliveryDelay time.Duration) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		rooms:         make(map[int]map[*Client]bool),
		frames:        make(chan frame),
		broadcast:     make(chan roomEvent),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		store:         store,
		presence:      tracker,
		deliveryDelay: deliveryDelay,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.connected(client)
			h.sendPresenceSnapshot(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case f := <-h.frames:
			// A connection that said goodbye (or was dropped for a full
			// buffer) may still pump frames until its socket closes; those
			// frames no longer belong to a registered client and are ignored.
			if h.clients[f.client] {
				h.handleEvent(f.client, f.event)
			}
		case re := <-h.broadcast:
			h.broadcastRoom(re.chatID, re.event, re.exclude)
		}
	}
}

// connected and disconnected keep the persisted online flag and the presence
// broadcast in lockstep with the connection refcount, so an abrupt tab close
// is handled exactly like an explicit goodbye.
func (h *Hub) connected(client *Client) {
	if !h.presence.Add(client.userID, client.connID) {
		return
	}
	if err := h.store.SetOnline(client.userID, true); err != nil {
		log.Printf("Error persisting online status: %v", err)
	}
	h.broadcastAll(newEvent(EventUserStatusChanged, UserStatusPayload{UserID: client.userID, Online: true}))
}

func (h *Hub) disconnected(client *Client) {
	if !h.presence.Remove(client.userID, client.connID) {
		return
	}
	if err := h.store.SetOnline(client.userID, false); err != nil {
		log.Printf("Error persisting offline status: %v", err)
	}
	h.broadcastAll(newEvent(EventUserStatusChanged, UserStatusPayload{UserID: client.userID, Online: false}))
}

// aboutSelf rejects presence events that name a user other than the one the
// connection authenticated as. An empty payload refers to the caller.
func (h *Hub) aboutSelf(client *Client, event Event) bool {
	if len(event.Data) == 0 {
		return true
	}
	var p UserPayload
	if err := json.Unmarshal(event.Data, &p); err != nil {
		log.Printf("Error parsing %s: %v", event.Type, err)
		return false
	}
	if p.UserID != 0 && p.UserID != client.userID {
		log.Printf("Ignoring %s for user %d from connection of user %d", event.Type, p.UserID, client.userID)
		return false
	}
	return true
}

// sendPresenceSnapshot tells a fresh connection who is already online, since
// it missed the earlier broadcasts.
func (h *Hub) sendPresenceSnapshot(client *Client) {
	for _, userID := range h.presence.OnlineUsers() {
		if userID == client.userID {
			continue
		}
		h.sendTo(client, newEvent(EventUserStatusChanged, UserStatusPayload{UserID: userID, Online: true}))
	}
}

func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for chatID, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, chatID)
		}
	}
	close(client.send)
	h.disconnected(client)
}

func (h *Hub) handleEvent(client *Client, event Event) {
	switch event.Type {
	case EventUserOnline:
		if !h.aboutSelf(client, event) {
			return
		}
		// Presence is derived from the connection itself; the explicit
		// announce just re-broadcasts the current state for late joiners.
		h.broadcastAll(newEvent(EventUserStatusChanged, UserStatusPayload{
			UserID: client.userID,
			Online: h.presence.Online(client.userID),
		}))

	case EventUserOffline:
		if !h.aboutSelf(client, event) {
			return
		}
		// An explicit goodbye is treated as a disconnect so the offline
		// path is the same whether or not the client says goodbye first.
		h.removeClient(client)

	case EventJoinChat:
		var p ChatPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			log.Printf("Error parsing joinChat: %v", err)
			return
		}
		room, ok := h.rooms[p.ChatID]
		if !ok {
			room = make(map[*Client]bool)
			h.rooms[p.ChatID] = room
		}
		room[client] = true

	case EventSendMessage:
		h.handleSendMessage(client, event)

	case EventMarkAsRead:
		h.handleMarkAsRead(event)

	case EventTyping:
		var p TypingPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			log.Printf("Error parsing typing: %v", err)
			return
		}
		h.broadcastRoom(p.ChatID, newEvent(EventUserTyping, p), client)

	case EventStopTyping:
		var p TypingPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			log.Printf("Error parsing stopTyping: %v", err)
			return
		}
		h.broadcastRoom(p.ChatID, newEvent(EventUserStoppedTyping, TypingPayload{ChatID: p.ChatID, UserID: p.UserID}), client)

	default:
		log.Printf("Unknown event type: %q", event.Type)
	}
}

func (h *Hub) handleSendMessage(client *Client, event Event) {
	var p SendMessagePayload
	if err := json.Unmarshal(event.Data, &p); err != nil {
		h.sendTo(client, newEvent(EventError, ErrorPayload{Message: "invalid sendMessage payload"}))
		return
	}

	message, err := h.store.SaveMessage(p.ChatID, p.SenderID, p.Content, models.TypeText)
	if err != nil {
		log.Printf("Error saving message: %v", err)
		h.sendTo(client, newEvent(EventError, ErrorPayload{Message: "Failed to send message: " + err.Error()}))
		return
	}
	if p.SenderName != "" {
		message.SenderName = p.SenderName
	}

	h.broadcastRoom(message.ChatID, newEvent(EventReceiveMessage, message), nil)

	// Simulated delivery latency; fires whether or not any recipient is
	// connected. MarkDelivered never moves a message backward, so a timer
	// firing after a read is a no-op.
	messageID, chatID := message.ID, message.ChatID
	time.AfterFunc(h.deliveryDelay, func() {
		moved, err := h.store.MarkDelivered(messageID)
		if err != nil {
			log.Printf("Error marking message %d delivered: %v", messageID, err)
			return
		}
		if !moved {
			return
		}
		h.broadcast <- roomEvent{
			chatID: chatID,
			event: newEvent(EventStatusUpdate, StatusUpdatePayload{
				MessageID: messageID,
				Status:    models.StatusDelivered,
			}),
		}
	})
}

func (h *Hub) handleMarkAsRead(event Event) {
	var p MarkAsReadPayload
	if err := json.Unmarshal(event.Data, &p); err != nil {
		log.Printf("Error parsing markAsRead: %v", err)
		return
	}

	added, err := h.store.AddRead(p.MessageID, p.UserID)
	if err != nil {
		log.Printf("Error recording read: %v", err)
		return
	}
	if !added {
		return
	}

	status, err := h.store.RecomputeStatus(p.MessageID)
	if err != nil {
		log.Printf("Error recomputing status: %v", err)
		return
	}

	h.broadcastRoom(p.ChatID, newEvent(EventStatusUpdate, StatusUpdatePayload{
		MessageID: p.MessageID,
		Status:    status,
	}), nil)
}

func (h *Hub) broadcastRoom(chatID int, event Event, exclude *Client) {
	for client := range h.rooms[chatID] {
		if client == exclude {
			continue
		}
		h.sendTo(client, event)
	}
}

func (h *Hub) broadcastAll(event Event) {
	for client := range h.clients {
		h.sendTo(client, event)
	}
}

func (h *Hub) sendTo(client *Client, event Event) {
	// Removed clients have a closed send channel; sending would panic.
	if !h.clients[client] {
		return
	}
	msgBytes, _ := json.Marshal(event)
	select {
	case client.send <- msgBytes:
	default:
		h.removeClient(client)
	}
}
