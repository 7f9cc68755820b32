package ws

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/model"
)

// Authorizer decides whether userID may subscribe to topic.
type Authorizer interface {
	Authorize(ctx context.Context, userID, topic string) error
}

// PresenceTracker is told when a user's presence changes: first connection,
// last disconnect, or an explicit presence event from the client.
// RefreshPresence is called periodically for every connected user so a
// TTL-based presence mark does not expire under an open socket.
type PresenceTracker interface {
	SetPresence(ctx context.Context, userID string, p model.Presence) error
	RefreshPresence(ctx context.Context, userID string, p model.Presence) error
}

type Options struct {
	MaxConnections int
	SendBufferSize int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
	// PresenceRefresh is how often presence of connected users is re-written.
	// Keep it below the presence TTL.
	PresenceRefresh time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConnections <= 0 {
		o.MaxConnections = 10000
	}
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 8192
	}
	if o.PresenceRefresh <= 0 {
		o.PresenceRefresh = 30 * time.Second
	}
	return o
}

func (o Options) pingPeriod() time.Duration { return o.PongTimeout * 9 / 10 }

// Hub tracks connections per user and subscriptions per topic.
// Registration goes through Run; delivery reads the maps under mu.
type Hub struct {
	opts Options

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // userID -> connections
	topics  map[string]map[*Client]struct{} // topic -> subscribers
	status  map[string]model.Presence        // userID -> last presence of a connected user
	total   int

	auth     Authorizer
	presence PresenceTracker

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(opts Options) *Hub {
	return &Hub{
		opts:       opts.withDefaults(),
		clients:    make(map[string]map[*Client]struct{}),
		topics:     make(map[string]map[*Client]struct{}),
		status:     make(map[string]model.Presence),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

// Bind wires the service side. Must be called before Run.
func (h *Hub) Bind(auth Authorizer, presence PresenceTracker) {
	h.auth = auth
	h.presence = presence
}

func (h *Hub) Run(ctx context.Context) {
	refresh := time.NewTicker(h.opts.PresenceRefresh)
	defer refresh.Stop()
	for {
		select {
		case <-ctx.Done():
			// done first: pumps exiting during shutdown must not block in Unregister
			close(h.done)
			h.shutdown()
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case <-refresh.C:
			h.refreshPresence()
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	all := make([]*Client, 0, h.total)
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.topics = make(map[string]map[*Client]struct{})
	h.status = make(map[string]model.Presence)
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.opts.MaxConnections {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.opts.MaxConnections, c.userID)
		c.Close()
		return
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.total++
	first := len(set) == 1
	if first {
		h.status[c.userID] = model.PresenceOnline
	}
	h.mu.Unlock()

	if first {
		h.trackPresence(c.userID, model.PresenceOnline)
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	for topic := range c.topics {
		h.dropSubscriber(topic, c)
	}
	set := h.clients[c.userID]
	if _, exists := set[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	h.total--
	last := len(set) == 0
	if last {
		delete(h.clients, c.userID)
		delete(h.status, c.userID)
	}
	h.mu.Unlock()

	c.Close()
	if last {
		h.trackPresence(c.userID, model.PresenceOffline)
	}
}

// dropSubscriber removes c from topic. Caller holds mu.
func (h *Hub) dropSubscriber(topic string, c *Client) {
	delete(c.topics, topic)
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) trackPresence(userID string, p model.Presence) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.SetPresence(ctx, userID, p); err != nil {
		logger.Errorf("ws presence user=%s %s: %v", userID, p, err)
	}
}

// refreshPresence re-writes presence of every connected user. Runs in the Run goroutine.
func (h *Hub) refreshPresence() {
	if h.presence == nil {
		return
	}
	h.mu.RLock()
	snapshot := make(map[string]model.Presence, len(h.status))
	for uid, p := range h.status {
		snapshot[uid] = p
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for uid, p := range snapshot {
		if err := h.presence.RefreshPresence(ctx, uid, p); err != nil {
			logger.Errorf("ws presence refresh user=%s: %v", uid, err)
		}
	}
}

// HandleMessage dispatches one client event.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case model.EventSubscribe:
		h.handleSubscribe(ctx, c, msg.Topic)
	case model.EventUnsubscribe:
		h.mu.Lock()
		h.dropSubscriber(msg.Topic, c)
		h.mu.Unlock()
	case model.EventTyping:
		h.handleTyping(c, msg.Topic)
	case model.EventPresence:
		if !msg.Presence.Valid() {
			h.sendError(c, "", "invalid presence")
			return
		}
		h.mu.Lock()
		if _, connected := h.clients[c.userID]; connected {
			h.status[c.userID] = msg.Presence
		}
		h.mu.Unlock()
		h.trackPresence(c.userID, msg.Presence)
	default:
		h.sendError(c, msg.Topic, "unknown event type")
	}
}

func (h *Hub) handleSubscribe(ctx context.Context, c *Client, topic string) {
	defer logger.DeferLogDuration("ws.subscribe", time.Now())()
	if _, _, ok := model.ParseTopic(topic); !ok {
		h.sendError(c, topic, "unknown topic")
		return
	}
	if h.auth != nil {
		actx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := h.auth.Authorize(actx, c.userID, topic)
		cancel()
		if err != nil {
			logger.Debugf("ws subscribe denied user=%s topic=%s: %v", c.userID, topic, err)
			h.sendError(c, topic, "forbidden")
			return
		}
	}
	select {
	case <-c.done:
		return
	default:
	}
	// removeClient runs after the last HandleMessage of c, so it drops this subscription too.
	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}
	c.topics[topic] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) handleTyping(c *Client, topic string) {
	h.mu.RLock()
	_, subscribed := c.topics[topic]
	h.mu.RUnlock()
	if !subscribed {
		h.sendError(c, topic, "not subscribed")
		return
	}
	h.publish(topic, OutgoingMessage{Type: model.EventTyping, Topic: topic, Payload: TypingPayload{UserID: c.userID}}, c)
}

// Publish delivers an event to every subscriber of topic.
func (h *Hub) Publish(topic string, eventType model.EventType, payload any) {
	h.publish(topic, OutgoingMessage{Type: eventType, Topic: topic, Payload: payload}, nil)
}

func (h *Hub) publish(topic string, msg OutgoingMessage, except *Client) {
	h.mu.RLock()
	subs := h.topics[topic]
	targets := make([]*Client, 0, len(subs))
	for c := range subs {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

// NotifyUsers delivers an event to every connection of the given users, subscribed or not.
func (h *Hub) NotifyUsers(userIDs []string, eventType model.EventType, payload any) {
	msg := OutgoingMessage{Type: eventType, Payload: payload}
	for _, uid := range userIDs {
		h.sendToUser(uid, msg)
	}
}

// Revoke drops userID's subscriptions to topic and to every topic below it
// (used when the user leaves a channel).
func (h *Hub) Revoke(userID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[userID] {
		for t := range c.topics {
			if t == topic || strings.HasPrefix(t, topic+"/") {
				h.dropSubscriber(t, c)
			}
		}
	}
}

// DisconnectUser closes every stream of userID (logout).
func (h *Hub) DisconnectUser(userID string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.Close()
	}
}

// Online reports whether userID has at least one open connection.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) sendToUser(userID string, msg OutgoingMessage) {
	h.mu.RLock()
	set := h.clients[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendError(c *Client, topic, text string) {
	h.sendToClient(c, OutgoingMessage{Type: model.EventError, Topic: topic, Payload: ErrorPayload{Topic: topic, Message: text}})
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// send buffer full: drop the slow client
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case <-h.done:
		c.Close()
		return
	default:
	}
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
