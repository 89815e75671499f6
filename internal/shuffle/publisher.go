package shuffle

import (
	"Go2Sawzall/internal/codec"
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/model"
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
)

// EOSHeader marks the end-of-stream message a publisher sends to every
// partition when it closes. AbortHeader replaces it when the producing job
// failed; its value carries the cause.
const (
	EOSHeader   = "Saw-Eos"
	AbortHeader = "Saw-Abort"
)

// PartitionSubject returns the NATS subject carrying one reduce partition.
func PartitionSubject(prefix string, partition int) string {
	return fmt.Sprintf("%s.%d", prefix, partition)
}

// Publisher sends encoded emission records to per-partition NATS subjects.
type Publisher struct {
	nc         *nats.Conn
	subject    string
	partitions int

	mu  sync.Mutex
	buf []byte
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ShuffleConfig, partitions int) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to NATS at %s", cfg.NATSURL)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return newPublisher(nc, cfg.Subject, partitions), nil
}

func newPublisher(nc *nats.Conn, subject string, partitions int) *Publisher {
	if partitions < 1 {
		partitions = 1
	}
	return &Publisher{nc: nc, subject: subject, partitions: partitions}
}

// Emit implements model.Emitter by publishing r to its partition subject. It
// is safe for concurrent use.
func (p *Publisher) Emit(ctx context.Context, r model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = codec.AppendRecord(p.buf[:0], r)
	subject := PartitionSubject(p.subject, Partition(r.Key, p.partitions))
	// nats copies the payload into its write buffer, so p.buf can be reused.
	if err := p.nc.Publish(subject, p.buf); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", subject)
	}
	return nil
}

// Close sends end-of-stream to every partition, then drains the connection.
func (p *Publisher) Close() error {
	return p.finish(EOSHeader, "1")
}

// Abort tells every partition that this producer failed, so no worker reduces
// a partial stream, then drains the connection.
func (p *Publisher) Abort(cause error) error {
	reason := "aborted"
	if cause != nil {
		reason = cause.Error()
	}
	return p.finish(AbortHeader, reason)
}

func (p *Publisher) finish(header, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < p.partitions; i++ {
		msg := nats.NewMsg(PartitionSubject(p.subject, i))
		msg.Header.Set(header, value)
		if err := p.nc.PublishMsg(msg); err != nil {
			return errors.Wrapf(err, "failed to publish %s to partition %d", header, i)
		}
	}
	if err := p.nc.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush NATS connection")
	}
	if err := p.nc.Drain(); err != nil {
		return errors.Wrap(err, "failed to drain NATS connection")
	}
	log.Printf("Sent %s to %d partitions; NATS connection drained.", header, p.partitions)
	return nil
}
