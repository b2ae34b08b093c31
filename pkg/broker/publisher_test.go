package broker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierbridge/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// wsSink accepts websocket connections and collects text messages.
type wsSink struct {
	server *httptest.Server

	mu       sync.Mutex
	received []models.ChatRecord
}

func newWsSink(t *testing.T) *wsSink {
	t.Helper()
	sink := &wsSink{}

	sink.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			_, data, err := conn.Read(context.Background())
			if err != nil {
				return
			}
			var record models.ChatRecord
			if json.Unmarshal(data, &record) == nil {
				sink.mu.Lock()
				sink.received = append(sink.received, record)
				sink.mu.Unlock()
			}
		}
	}))
	t.Cleanup(sink.server.Close)
	return sink
}

func (s *wsSink) records() []models.ChatRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatRecord, len(s.received))
	copy(out, s.received)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestPublisher_DeliversRecords(t *testing.T) {
	sink := newWsSink(t)

	pub := NewPublisher(sink.server.URL, 16, quietLogger())
	pub.Start()
	defer pub.Close()

	pub.Publish(models.ChatRecord{Type: "location", GroupID: "g1", MessageID: "M1", Latitude: 40.4})
	pub.Publish(models.ChatRecord{Type: "text", GroupID: "g1", MessageID: "M2", Text: "salam"})

	waitFor(t, 3*time.Second, func() bool { return len(sink.records()) == 2 })

	records := sink.records()
	assert.Equal(t, "location", records[0].Type)
	assert.Equal(t, "M2", records[1].MessageID)
}

func TestPublisher_QueuesWhileDisconnected(t *testing.T) {
	sink := newWsSink(t)

	pub := NewPublisher(sink.server.URL, 16, quietLogger())

	// Published before Start: nothing is connected yet, records queue.
	pub.Publish(models.ChatRecord{Type: "text", MessageID: "EARLY"})

	pub.Start()
	defer pub.Close()

	waitFor(t, 3*time.Second, func() bool { return len(sink.records()) == 1 })
	assert.Equal(t, "EARLY", sink.records()[0].MessageID)
}

func TestPublisher_ReconnectsWithBackoff(t *testing.T) {
	sink := newWsSink(t)

	var mu sync.Mutex
	dials := 0
	pub := NewPublisher(sink.server.URL, 16, quietLogger())
	realDial := pub.dial
	pub.dial = func(ctx context.Context) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()
		if n < 3 {
			return nil, errors.New("connection refused")
		}
		return realDial(ctx)
	}

	pub.Start()
	defer pub.Close()

	pub.Publish(models.ChatRecord{Type: "text", MessageID: "AFTER-RETRY"})

	waitFor(t, 10*time.Second, func() bool { return len(sink.records()) == 1 })
	mu.Lock()
	assert.GreaterOrEqual(t, dials, 3)
	mu.Unlock()
}

func TestPublisher_FullQueueDrops(t *testing.T) {
	pub := NewPublisher("ws://127.0.0.1:1", 1, quietLogger())
	// Not started: queue fills and overflow is dropped silently.
	pub.Publish(models.ChatRecord{MessageID: "KEPT"})
	pub.Publish(models.ChatRecord{MessageID: "DROPPED"})

	require.Len(t, pub.queue, 1)
}

func TestPublisher_PublishAfterCloseIsNoop(t *testing.T) {
	pub := NewPublisher("ws://127.0.0.1:1", 4, quietLogger())
	pub.Start()
	pub.Close()

	pub.Publish(models.ChatRecord{MessageID: "LATE"})
	assert.Empty(t, pub.queue)
}
