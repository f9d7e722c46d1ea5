package overlay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DrawFrame is one rendered frame shipped to the game client, which
// does the actual on-screen drawing.
type DrawFrame struct {
	Lines   []DrawLine `json:"lines"`
	Markers []Point    `json:"markers"`
	At      time.Time  `json:"at"`
}

type DrawLine struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// FeedCanvas batches primitives per frame and sends each frame over a
// websocket. Send failures drop the frame and force a redial; the
// overlay is best-effort by nature, so nothing is buffered or retried.
type FeedCanvas struct {
	url string
	log zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	lastDial time.Time
	frame    DrawFrame
}

func NewFeedCanvas(url string, log zerolog.Logger) *FeedCanvas {
	return &FeedCanvas{url: url, log: log}
}

// Line implements Canvas.
func (c *FeedCanvas) Line(from, to Point) {
	c.mu.Lock()
	c.frame.Lines = append(c.frame.Lines, DrawLine{From: from, To: to})
	c.mu.Unlock()
}

// Marker implements Canvas.
func (c *FeedCanvas) Marker(at Point) {
	c.mu.Lock()
	c.frame.Markers = append(c.frame.Markers, at)
	c.mu.Unlock()
}

// Flush implements Canvas: sends the accumulated frame, empty or not.
func (c *FeedCanvas) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := c.frame
	frame.At = time.Now()
	c.frame = DrawFrame{}

	if c.conn == nil && !c.dial() {
		return
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		c.log.Warn().Err(err).Msg("overlay send failed")
		c.conn.Close()
		c.conn = nil
	}
}

// dial connects to the overlay endpoint, at most once per second.
func (c *FeedCanvas) dial() bool {
	if time.Since(c.lastDial) < time.Second {
		return false
	}
	c.lastDial = time.Now()
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.log.Debug().Err(err).Str("url", c.url).Msg("overlay dial failed")
		return false
	}
	c.log.Info().Str("url", c.url).Msg("overlay connected")
	c.conn = conn
	return true
}

// Close tears the connection down.
func (c *FeedCanvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
