package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/campusride/rideshare-backend/internal/models"
	"github.com/campusride/rideshare-backend/internal/stores"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// MessageAppender persists chat messages before they are broadcast.
type MessageAppender interface {
	Append(ctx context.Context, rideID uint, sender, body string) (*models.Message, error)
}

// MembershipChecker gates room subscriptions on ride participation.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, rideID, userID uint) (bool, error)
}

// Client represents one WebSocket chat session
type Client struct {
	UserID uint
	Name   string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub

	// room the client is subscribed to, 0 when none; guarded by Hub.mutex
	room uint
}

// Hub maintains the set of connected clients and the per-ride chat rooms.
// A room exists only while at least one client is subscribed to it.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[uint]map[*Client]bool
	order      map[uint]*sync.Mutex
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	messages   MessageAppender
	membership MembershipChecker
}

// NewHub creates a new WebSocket hub
func NewHub(messages MessageAppender, membership MembershipChecker) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[uint]map[*Client]bool),
		order:      make(map[uint]*sync.Mutex),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		messages:   messages,
		membership: membership,
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %d connected", client.UserID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.leaveRoomLocked(client)
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("Client %d disconnected", client.UserID)
		}
	}
}

// Subscribe adds the client to the room for rideID. Subscribing to the
// current room is a no-op; subscribing to a different room moves the client,
// a connection belongs to at most one room.
func (h *Hub) Subscribe(rideID uint, client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if client.room == rideID {
		return
	}
	h.leaveRoomLocked(client)

	room, ok := h.rooms[rideID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[rideID] = room
	}
	room[client] = true
	client.room = rideID

	go publishRoomPresence(rideID, len(room))
}

// Unsubscribe removes the client from whichever room it is in. Safe to call
// repeatedly or for a client that never subscribed.
func (h *Hub) Unsubscribe(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.leaveRoomLocked(client)
}

// leaveRoomLocked removes the client from its room and evicts the room when
// it becomes empty. Caller must hold h.mutex.
func (h *Hub) leaveRoomLocked(client *Client) {
	if client.room == 0 {
		return
	}
	rideID := client.room
	if room, ok := h.rooms[rideID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, rideID)
			delete(h.order, rideID)
		}
		go publishRoomPresence(rideID, len(room))
	}
	client.room = 0
}

// BroadcastToRoom delivers message to every client subscribed to the room.
// Delivery is best-effort per client: a full send buffer never blocks the
// rest of the room.
func (h *Hub) BroadcastToRoom(rideID uint, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.rooms[rideID] {
		select {
		case client.Send <- message:
		default:
			log.Printf("Warning: could not send to client %d (channel full)", client.UserID)
		}
	}
}

// RoomSize returns the number of clients currently subscribed to the room.
func (h *Hub) RoomSize(rideID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[rideID])
}

// ConnectedClients returns the number of connected clients
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// roomOrder returns the room's ordering lock, creating it on first use.
func (h *Hub) roomOrder(rideID uint) *sync.Mutex {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	mu, ok := h.order[rideID]
	if !ok {
		mu = &sync.Mutex{}
		h.order[rideID] = mu
	}
	return mu
}

// WebSocket message envelope, both directions
type WebSocketMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinRoomPayload asks to enter the chat room of a ride
type JoinRoomPayload struct {
	RideID uint `json:"rideId"`
}

// SendMessagePayload carries an outgoing chat message from a client
type SendMessagePayload struct {
	RideID uint   `json:"rideId"`
	Body   string `json:"message"`
	Sender string `json:"sender"`
}

// ReceiveMessagePayload is fanned out to every subscriber of a room,
// including the sender; the timestamp is the one the store assigned.
type ReceiveMessagePayload struct {
	RideID    uint      `json:"rideId"`
	Sender    string    `json:"sender"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomJoinedPayload acknowledges a join_room request
type RoomJoinedPayload struct {
	RideID uint `json:"rideId"`
}

// ErrorPayload reports a failed inbound event back to its sender
type ErrorPayload struct {
	Message string `json:"message"`
}

// HandleWebSocket upgrades the connection and starts the client pumps
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, name string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		UserID: userID,
		Name:   name,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    hub,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			log.Printf("Error unmarshaling WebSocket message: %v", err)
			continue
		}

		switch wsMessage.Type {
		case "join_room":
			c.handleJoinRoom(wsMessage.Data)
		case "send_message":
			c.handleSendMessage(wsMessage.Data)
		default:
			log.Printf("Unknown WebSocket message type %q from client %d", wsMessage.Type, c.UserID)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// handleJoinRoom subscribes the client to a ride's chat room. Only ride
// participants may enter the room.
func (c *Client) handleJoinRoom(data json.RawMessage) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("invalid join_room payload")
		return
	}

	ok, err := c.Hub.membership.IsParticipant(context.Background(), payload.RideID, c.UserID)
	if err != nil {
		if errors.Is(err, stores.ErrRideNotFound) {
			c.sendError("ride not found")
			return
		}
		log.Printf("Error checking ride membership for client %d: %v", c.UserID, err)
		c.sendError("could not join room")
		return
	}
	if !ok {
		c.sendError("join the ride before entering its chat")
		return
	}

	c.Hub.Subscribe(payload.RideID, c)
	log.Printf("Client %d joined room %d", c.UserID, payload.RideID)

	c.sendEvent("room_joined", RoomJoinedPayload{RideID: payload.RideID})
}

// handleSendMessage persists the message, then fans it out to the room. The
// sender receives the broadcast too and re-renders from it, so every client
// sees the store-assigned timestamp.
func (c *Client) handleSendMessage(data json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("invalid send_message payload")
		return
	}

	c.Hub.mutex.RLock()
	subscribed := c.room == payload.RideID
	c.Hub.mutex.RUnlock()
	if !subscribed {
		c.sendError("join the room before sending messages")
		return
	}

	sender := payload.Sender
	if sender == "" {
		sender = c.Name
	}

	// Append-then-broadcast runs under the room's order lock so the log
	// order is the fan-out order.
	mu := c.Hub.roomOrder(payload.RideID)
	mu.Lock()
	msg, err := c.Hub.messages.Append(context.Background(), payload.RideID, sender, payload.Body)
	if err != nil {
		mu.Unlock()
		if errors.Is(err, stores.ErrEmptyMessage) {
			c.sendError("message body is empty")
			return
		}
		log.Printf("Error saving message from client %d: %v", c.UserID, err)
		c.sendError("could not deliver message")
		return
	}

	out, err := json.Marshal(WebSocketMessage{
		Type: "receive_message",
		Data: mustMarshal(ReceiveMessagePayload{
			RideID:    msg.RideID,
			Sender:    msg.Sender,
			Body:      msg.Body,
			Timestamp: msg.CreatedAt,
		}),
	})
	if err != nil {
		mu.Unlock()
		log.Printf("Error marshaling receive_message: %v", err)
		return
	}
	c.Hub.BroadcastToRoom(payload.RideID, out)
	mu.Unlock()

	go func() {
		if err := PublishChatMessage(context.Background(), msg); err != nil {
			log.Printf("Error publishing chat message to Redis: %v", err)
		}
	}()
}

func (c *Client) sendEvent(eventType string, payload interface{}) {
	out, err := json.Marshal(WebSocketMessage{Type: eventType, Data: mustMarshal(payload)})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}
	select {
	case c.Send <- out:
	default:
		log.Printf("Warning: could not send %s to client %d (channel full)", eventType, c.UserID)
	}
}

func (c *Client) sendError(message string) {
	c.sendEvent("error", ErrorPayload{Message: message})
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling payload: %v", err)
		return json.RawMessage("{}")
	}
	return data
}
