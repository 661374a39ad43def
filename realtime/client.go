package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/FiveEightyEight/scripturequest/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024

	DefaultQueueSize = 64
)

// Client is one websocket connection. All writes go through a single
// goroutine fed by a bounded queue.
type Client struct {
	conn     *websocket.Conn
	playerID string
	username string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps conn. A nil conn is allowed; queued messages are then only
// readable through Messages.
func NewClient(conn *websocket.Conn, playerID, username string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Client{
		conn:     conn,
		playerID: playerID,
		username: username,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

func (c *Client) PlayerID() string {
	return c.playerID
}

func (c *Client) Username() string {
	return c.username
}

func (c *Client) Messages() <-chan []byte {
	return c.send
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendEvent queues an event for this client only.
func (c *Client) SendEvent(eventType string, payload interface{}) bool {
	data, err := json.Marshal(models.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("realtime: failed to encode %s event: %v", eventType, err)
		return false
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// WritePump drains the send queue to the socket and keeps it alive with
// pings. It returns when the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("realtime: write to player %s failed: %v", c.playerID, err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadPump decodes inbound frames and hands them to handle until the
// connection fails. Frames that are not valid JSON are skipped.
func (c *Client) ReadPump(handle func(models.SocketMessage)) error {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg models.SocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("realtime: bad frame from player %s: %v", c.playerID, err)
			c.SendEvent(models.EventError, models.SocketError{Code: "BAD_FRAME", Message: "invalid JSON message"})
			continue
		}
		handle(msg)
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}
