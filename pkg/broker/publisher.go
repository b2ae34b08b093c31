package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"courierbridge/internal/models"
)

const (
	reconnectMinWait = 500 * time.Millisecond
	reconnectMaxWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// Publisher forwards chat records to the downstream mirror over a
// persistent websocket. Publish never blocks on the network: records
// are queued in memory and a single writer goroutine drains the queue,
// reconnecting with backoff whenever the connection drops. Records
// that arrive while the queue is full are dropped, which is acceptable
// for a fire-and-forget mirror channel.
type Publisher struct {
	url    string
	logger *logrus.Logger

	queue  chan models.ChatRecord
	done   chan struct{}
	wg     sync.WaitGroup
	closed sync.Once

	// dial is swapped out in tests.
	dial func(ctx context.Context) (*websocket.Conn, error)
}

func NewPublisher(url string, queueSize int, logger *logrus.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	p := &Publisher{
		url:    url,
		logger: logger,
		queue:  make(chan models.ChatRecord, queueSize),
		done:   make(chan struct{}),
	}
	p.dial = func(ctx context.Context) (*websocket.Conn, error) {
		conn, _, err := websocket.Dial(ctx, p.url, nil)
		return conn, err
	}
	return p
}

// Start launches the writer goroutine.
func (p *Publisher) Start() {
	p.wg.Add(1)
	go p.run()
}

// Publish enqueues a record. Never blocks; drops when the queue is
// full or the publisher is closed.
func (p *Publisher) Publish(record models.ChatRecord) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.queue <- record:
	default:
		p.logger.Warn("Broker queue full, dropping chat record")
	}
}

// Close stops the writer and waits for it to exit. Queued records not
// yet written are discarded.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()

	wait := reconnectMinWait
	for {
		conn, err := p.connect()
		if err != nil {
			select {
			case <-p.done:
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > reconnectMaxWait {
				wait = reconnectMaxWait
			}
			continue
		}
		wait = reconnectMinWait

		if !p.writeLoop(conn) {
			_ = conn.Close(websocket.StatusNormalClosure, "shutting down")
			return
		}
		// Connection lost, reconnect.
	}
}

func (p *Publisher) connect() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	conn, err := p.dial(ctx)
	if err != nil {
		p.logger.WithError(err).Debug("Broker connection failed, will retry")
		return nil, err
	}

	p.logger.Info("Connected to downstream broker")
	return conn, nil
}

// writeLoop drains the queue into conn. Returns false when the
// publisher is closing, true when the connection failed and a
// reconnect is needed. A record that fails to write is dropped with
// the connection rather than retried, keeping the channel strictly
// fire-and-forget.
func (p *Publisher) writeLoop(conn *websocket.Conn) bool {
	for {
		select {
		case <-p.done:
			return false
		case record := <-p.queue:
			data, err := json.Marshal(record)
			if err != nil {
				p.logger.WithError(err).Warn("Failed to marshal chat record")
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err = conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				p.logger.WithError(err).Warn("Broker write failed, reconnecting")
				_ = conn.Close(websocket.StatusInternalError, "write failed")
				return true
			}
		}
	}
}
