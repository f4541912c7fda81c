// Package realtime pushes meal plan changes to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/mq"
	"mahlzeit/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Topic identifies one user's plan for one date.
func Topic(userID, date string) string {
	return userID + "/" + date
}

type Client struct {
	ID    string
	topic string
	conn  *websocket.Conn
	send  chan []byte
}

type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.topics[c.topic] == nil {
		h.topics[c.topic] = make(map[*Client]struct{})
	}
	h.topics[c.topic][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set := h.topics[c.topic]; set != nil {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.topics, c.topic)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish queues payload for every subscriber of topic. Slow clients whose
// buffer is full miss the message; the next one carries the full document.
func (h *Hub) Publish(topic string, payload interface{}) int {
	msg, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("encode realtime payload")
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.topics[topic] {
		select {
		case c.send <- msg:
			n++
		default:
			log.Warn().Str("client", c.ID).Msg("realtime buffer full, dropping message")
		}
	}
	return n
}

// OnEvent forwards meal plan events from the bus.
func (h *Hub) OnEvent(eventName string, ev mq.Index) {
	if ev.EntityType != "mealplan" {
		return
	}
	h.Publish(Topic(ev.UserID, ev.EntityId), map[string]interface{}{
		"event": eventName,
		"date":  ev.EntityId,
		"plan":  ev.Payload,
	})
}

// SnapshotFunc loads the current document sent right after subscribing.
type SnapshotFunc func(ctx context.Context, userID, date string) (interface{}, error)

// ServeMealPlan upgrades to a websocket that receives the plan of :date
// whenever it changes.
func (h *Hub) ServeMealPlan(snapshot SnapshotFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		userID := utils.GetUserIDFromRequest(r)
		date := ps.ByName("date")
		if _, err := utils.ParseDate(date); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("websocket upgrade")
			return
		}
		c := &Client{
			ID:    uuid.NewString(),
			topic: Topic(userID, date),
			conn:  conn,
			send:  make(chan []byte, sendBuffer),
		}
		h.Register(c)
		log.Debug().Str("client", c.ID).Str("topic", c.topic).Msg("realtime subscribe")

		if snapshot != nil {
			if doc, err := snapshot(r.Context(), userID, date); err == nil {
				if msg, err := json.Marshal(map[string]interface{}{"event": "snapshot", "date": date, "plan": doc}); err == nil {
					c.send <- msg
				}
			} else {
				log.Warn().Err(err).Str("topic", c.topic).Msg("realtime snapshot")
			}
		}

		go c.writePump()
		c.readPump(h)
	}
}

// readPump only watches for close and pong frames; subscribers never send data.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.Unregister(c)
		log.Debug().Str("client", c.ID).Msg("realtime unsubscribe")
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
