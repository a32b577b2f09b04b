package realtime

import (
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	sseBuffer    = 16
	sseHeartbeat = 25 * time.Second
)

var errSlowConsumer = errors.New("event stream buffer full")

// sseConn hands messages to the streaming goroutine of one request
type sseConn struct {
	events chan Message
	done   chan struct{}
	once   sync.Once
}

func newSSEConn() *sseConn {
	return &sseConn{
		events: make(chan Message, sseBuffer),
		done:   make(chan struct{}),
	}
}

func (c *sseConn) Send(msg Message) error {
	select {
	case <-c.done:
		return io.ErrClosedPipe
	default:
	}

	select {
	case c.events <- msg:
		return nil
	default:
		return errSlowConsumer
	}
}

func (c *sseConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// ServeSSE streams userID's topic as server-sent events until the client goes away
func ServeSSE(c *gin.Context, hub *Hub, userID string) {
	conn := newSSEConn()
	sub, err := hub.Join(userID, conn)
	if err != nil {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	}
	defer hub.Leave(userID, sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	log.Printf("[Realtime] SSE connected for user %s", userID)
	c.SSEvent("connected", gin.H{"user_id": userID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg := <-conn.events:
			c.SSEvent(msg.Event, msg.Data)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"time": time.Now().Unix()})
			return true
		case <-conn.done:
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
	log.Printf("[Realtime] SSE disconnected for user %s", userID)
}
