package shuffle

import (
	"Go2Sawzall/internal/codec"
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/engine"
	"context"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
)

// ErrAborted is returned by Collect when a producer reported a failed job.
var ErrAborted = errors.New("shuffle producer aborted")

// Subscriber collects one reduce partition from NATS. Core NATS does not
// retain messages, so a subscriber must exist before any producer publishes.
type Subscriber struct {
	nc        *nats.Conn
	sub       *nats.Subscription
	subject   string
	producers int

	mu      sync.Mutex
	grouper *Grouper
	eos     int
	err     error
	done    chan struct{}
}

// NewSubscriber subscribes to partition and returns once the server has
// registered the subscription. Collect then waits for an end-of-stream
// marker from each of cfg.MapTasks producers.
func NewSubscriber(cfg config.ShuffleConfig, partition int) (*Subscriber, error) {
	s := &Subscriber{
		subject:   PartitionSubject(cfg.Subject, partition),
		producers: cfg.MapTasks,
		grouper:   NewGrouper(),
		done:      make(chan struct{}),
	}
	if s.producers < 1 {
		s.producers = 1
	}

	nc, err := nats.Connect(cfg.NATSURL, nats.ErrorHandler(s.asyncError))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to NATS at %s", cfg.NATSURL)
	}
	s.nc = nc
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)

	sub, err := nc.Subscribe(s.subject, s.handle)
	if err != nil {
		nc.Close()
		return nil, errors.Wrapf(err, "failed to subscribe to %s", s.subject)
	}
	s.sub = sub
	if err := nc.Flush(); err != nil {
		nc.Close()
		return nil, errors.Wrapf(err, "failed to register subscription to %s", s.subject)
	}
	log.Printf("Subscribed to '%s'. Producers may start now; waiting for %d of them.", s.subject, s.producers)
	return s, nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isDone() {
		return
	}

	if msg.Header != nil {
		if reason := msg.Header.Get(AbortHeader); reason != "" {
			err := errors.Mark(errors.Newf("producer on %s aborted: %s", s.subject, reason), ErrAborted)
			s.finish(errors.Mark(err, engine.ErrSubstrateIO))
			return
		}
		if msg.Header.Get(EOSHeader) != "" {
			s.eos++
			if s.eos >= s.producers {
				s.finish(nil)
			}
			return
		}
	}

	r, err := codec.UnmarshalRecord(msg.Data)
	if err != nil {
		s.finish(errors.Wrapf(err, "message on %s", s.subject))
		return
	}
	s.grouper.Add(r)
}

// asyncError fails the collection when the client reports dropped messages.
func (s *Subscriber) asyncError(_ *nats.Conn, _ *nats.Subscription, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isDone() {
		return
	}
	s.finish(engine.MarkIO(errors.Wrapf(err, "subscription to %s", s.subject)))
}

func (s *Subscriber) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// finish must be called with s.mu held.
func (s *Subscriber) finish(err error) {
	s.err = err
	close(s.done)
}

// Collect waits until every producer has signalled end-of-stream and returns
// the partition grouped by key. A producer abort, an undecodable record or a
// dropped message fails the collection.
func (s *Subscriber) Collect(ctx context.Context) (*Grouper, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Mark(errors.Wrapf(ctx.Err(), "collecting %s", s.subject), engine.ErrCancelled)
	case <-s.done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if dropped, err := s.sub.Dropped(); err == nil && dropped > 0 {
		return nil, engine.MarkIO(errors.Newf("%d messages dropped on %s", dropped, s.subject))
	}
	log.Printf("Collected %d values for %d keys from '%s'", s.grouper.Len(), s.grouper.Keys(), s.subject)
	return s.grouper, nil
}

// Close closes the NATS connection.
func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
