// Package publisher streams ledger domain events to a Kafka topic. The
// publisher registers with the ledger as an observer and never blocks it:
// events are queued and written by a single G.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Set of message types written to the topic.
const (
	TypeBlockAdded       = "block_added"
	TypeTransactionAdded = "transaction_added"
	TypeChainReplaced    = "chain_replaced"
)

// Defaults applied when the configuration leaves a value unset.
const (
	defQueueSize    = 1024
	defWriteTimeout = 10 * time.Second
)

// Writer represents the behavior required to deliver messages to the broker.
// The kafka.Writer implements this interface.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the envelope written to the topic.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

// Head summarizes a replaced chain.
type Head struct {
	Length int            `json:"length"`
	Block  database.Block `json:"block"`
}

// Config represents the configuration required to start the publisher.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	QueueSize    int
	WriteTimeout time.Duration
	Writer       Writer
	Log          *zap.SugaredLogger
}

// Publisher writes ledger events to Kafka.
type Publisher struct {
	log          *zap.SugaredLogger
	writer       Writer
	topic        string
	writeTimeout time.Duration
	queue        chan kafka.Message
	shut         chan struct{}
	wg           sync.WaitGroup
	once         sync.Once
}

// New constructs a publisher and starts the G that writes to the broker. When
// no Writer is provided a kafka.Writer is built for the brokers and topic.
func New(cfg Config) (*Publisher, error) {
	if cfg.Log == nil {
		return nil, errors.New("publisher: logger is required")
	}

	writer := cfg.Writer
	if writer == nil {
		if len(cfg.Brokers) == 0 || cfg.Topic == "" {
			return nil, errors.New("publisher: brokers and topic are required")
		}

		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		}
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defQueueSize
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defWriteTimeout
	}

	p := Publisher{
		log:          cfg.Log,
		writer:       writer,
		topic:        cfg.Topic,
		writeTimeout: writeTimeout,
		queue:        make(chan kafka.Message, queueSize),
		shut:         make(chan struct{}),
	}

	p.wg.Add(1)
	go p.run()

	p.log.Infow("publisher", "status", "started", "brokers", cfg.Brokers, "topic", cfg.Topic)

	return &p, nil
}

// Shutdown flushes the queued messages and closes the writer.
func (p *Publisher) Shutdown() error {
	p.once.Do(func() {
		close(p.shut)
	})
	p.wg.Wait()

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}

	p.log.Infow("publisher", "status", "stopped", "topic", p.topic)
	return nil
}

// =============================================================================
// These methods implement the state.Observer interface.

// BlockAdded publishes the accepted block keyed by its hash.
func (p *Publisher) BlockAdded(block database.Block) {
	p.enqueue(TypeBlockAdded, block.Hash, block)
}

// TransactionAdded publishes the pooled transaction keyed by its id.
func (p *Publisher) TransactionAdded(tx database.Tx) {
	p.enqueue(TypeTransactionAdded, tx.ID, tx)
}

// ChainReplaced publishes the new head of the chain.
func (p *Publisher) ChainReplaced(chain []database.Block) {
	if len(chain) == 0 {
		return
	}

	head := Head{
		Length: len(chain),
		Block:  chain[len(chain)-1],
	}

	p.enqueue(TypeChainReplaced, head.Block.Hash, head)
}

// =============================================================================

func (p *Publisher) enqueue(typ string, key string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		p.log.Errorw("publisher", "status", "marshal data", "type", typ, "ERROR", err)
		return
	}

	value, err := json.Marshal(Message{Type: typ, Data: raw, Time: time.Now().UTC()})
	if err != nil {
		p.log.Errorw("publisher", "status", "marshal message", "type", typ, "ERROR", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}

	select {
	case p.queue <- msg:
	default:
		p.log.Warnw("publisher", "status", "queue full, dropping message", "type", typ, "key", key)
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()

	for {
		select {
		case msg := <-p.queue:
			p.write(msg)

		case <-p.shut:
			for {
				select {
				case msg := <-p.queue:
					p.write(msg)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) write(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Errorw("publisher", "status", "write message", "key", string(msg.Key), "ERROR", err)
		return
	}

	p.log.Debugw("publisher", "status", "published", "key", string(msg.Key))
}
