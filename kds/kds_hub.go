package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/food-delivery-app/models"
	"github.com/yeremiapane/food-delivery-app/utils"
)

// Event types
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

const (
	writeWait = 5 * time.Second
	// messages queued per client before it counts as stalled and is dropped
	sendBuffer = 16
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// OrderEvent is the payload pushed to kitchen and rider dashboards.
type OrderEvent struct {
	OrderID        uint               `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	RestaurantID   uint               `json:"restaurant_id"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	Items          int                `json:"items"`
	Total          string             `json:"total"`
	At             time.Time          `json:"at"`
}

type client struct {
	conn *websocket.Conn
	role string
	send chan []byte
}

// Hub fans committed order events out to connected websocket clients
// (kitchen staff, admins, couriers). Each client has its own writer
// goroutine, so a slow dashboard never holds up a broadcast.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
	writers sync.WaitGroup
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = utils.Logger
	}
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		log:     log,
	}
}

func (h *Hub) Register(conn *websocket.Conn, role string) {
	c := &client{conn: conn, role: role, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	h.clients[conn] = c
	h.mutex.Unlock()

	h.writers.Add(1)
	go h.writePump(c)
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if c, ok := h.clients[conn]; ok {
		h.remove(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for the writers to finish.
// Used at shutdown.
func (h *Hub) Close() {
	h.mutex.Lock()
	for _, c := range h.clients {
		h.remove(c)
	}
	h.mutex.Unlock()
	h.writers.Wait()
}

func (h *Hub) OrderCreated(order models.Order) {
	h.Broadcast(Message{Event: EventOrderCreated, Data: newOrderEvent(order, "")})
}

func (h *Hub) OrderStatusChanged(order models.Order, previous models.OrderStatus) {
	h.Broadcast(Message{Event: EventOrderStatusChanged, Data: newOrderEvent(order, previous)})
}

// Broadcast queues msg for every client without blocking. A client whose
// queue is full is dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("marshal hub message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.WithField("role", c.role).Warn("dropping stalled websocket client")
			h.remove(c)
		}
	}
	h.log.WithFields(logrus.Fields{"event": msg.Event, "clients": len(h.clients)}).Debug("broadcast")
}

// remove detaches c; its writer closes the connection. Caller holds mutex.
func (h *Hub) remove(c *client) {
	if h.clients[c.conn] != c {
		return
	}
	delete(h.clients, c.conn)
	close(c.send)
}

func (h *Hub) writePump(c *client) {
	defer h.writers.Done()
	defer c.conn.Close()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).WithField("role", c.role).Warn("dropping websocket client")
			h.Unregister(c.conn)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func newOrderEvent(order models.Order, previous models.OrderStatus) OrderEvent {
	return OrderEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		RestaurantID:   order.RestaurantID,
		Status:         order.Status,
		PreviousStatus: previous,
		Items:          len(order.Items),
		Total:          order.TotalAmount.StringFixed(2),
		At:             time.Now().UTC(),
	}
}
