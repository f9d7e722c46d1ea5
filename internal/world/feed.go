package world

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Frame is one message from the game client's state feed. A full frame
// replaces the mirror wholesale; a delta frame upserts and removes.
type Frame struct {
	Full    bool          `json:"full"`
	Viewer  string        `json:"viewer,omitempty"`
	Objects []ObjectState `json:"objects,omitempty"`
	Removed []string      `json:"removed,omitempty"`
}

// FeedConfig configures the websocket world feed.
type FeedConfig struct {
	URL          string
	Logger       zerolog.Logger
	DialTimeout  time.Duration // default 5s
	ReadLimit    int64         // max frame size in bytes, default 4MB
	RetryBackoff time.Duration // initial reconnect delay, default 1s
	MaxBackoff   time.Duration // default 30s
}

// Feed mirrors the remote object graph into a Memory source. The
// mirror is updated by Run while trackers read it concurrently, which
// is exactly the torn-read regime the rest of the system is built for.
type Feed struct {
	cfg FeedConfig
	log zerolog.Logger
	mem *Memory
}

func NewFeed(cfg FeedConfig) *Feed {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadLimit == 0 {
		cfg.ReadLimit = 4 << 20
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Feed{
		cfg: cfg,
		log: cfg.Logger,
		mem: NewMemory(),
	}
}

// Source returns the live mirror. Valid before Run; it just stays empty
// until the first frame lands.
func (f *Feed) Source() Source {
	return f.mem
}

// Run dials the feed and applies frames until ctx is cancelled,
// reconnecting with capped backoff after any failure.
func (f *Feed) Run(ctx context.Context) error {
	backoff := f.cfg.RetryBackoff
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn().Err(err).Dur("retry_in", backoff).Msg("feed disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > f.cfg.MaxBackoff {
			backoff = f.cfg.MaxBackoff
		}
	}
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(f.cfg.ReadLimit)
	f.log.Info().Str("url", f.cfg.URL).Msg("feed connected")

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			// One bad frame is not worth a reconnect.
			f.log.Warn().Err(err).Int("bytes", len(data)).Msg("bad feed frame")
			continue
		}
		f.apply(frame)
	}
}

func (f *Feed) apply(frame Frame) {
	if frame.Full {
		f.mem.Clear()
	}
	for _, st := range frame.Objects {
		f.mem.Upsert(st)
	}
	for _, id := range frame.Removed {
		f.mem.Remove(id)
	}
	if frame.Viewer != "" {
		f.mem.SetViewer(frame.Viewer)
	}
}
