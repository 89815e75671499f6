package shuffle

import (
	"Go2Sawzall/internal/codec"
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/engine"
	"Go2Sawzall/internal/model"
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runNATS(t *testing.T, producers int) config.ShuffleConfig {
	t.Helper()
	opts := natstest.DefaultTestOptions
	opts.Port = -1
	srv := natstest.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return config.ShuffleConfig{NATSURL: srv.ClientURL(), Subject: "saw.test", MapTasks: producers}
}

func subscribe(t *testing.T, cfg config.ShuffleConfig, partition int) *Subscriber {
	t.Helper()
	sub, err := NewSubscriber(cfg, partition)
	require.NoError(t, err)
	t.Cleanup(sub.Close)
	return sub
}

func collect(t *testing.T, sub *Subscriber, timeout time.Duration) (*Grouper, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return sub.Collect(ctx)
}

func TestNATSShuffleWaitsForEveryProducer(t *testing.T) {
	cfg := runNATS(t, 2)
	subs := []*Subscriber{subscribe(t, cfg, 0), subscribe(t, cfg, 1)}

	pub1, err := NewPublisher(cfg, 2)
	require.NoError(t, err)
	pub2, err := NewPublisher(cfg, 2)
	require.NoError(t, err)

	ctx := context.Background()
	for _, r := range []model.Record{rec("wc", "a", "1"), rec("wc", "b", "1"), rec("wc", "c", "1")} {
		require.NoError(t, pub1.Emit(ctx, r))
	}
	require.NoError(t, pub1.Close())

	// One producer is still open, so no partition is complete yet.
	_, err = collect(t, subs[0], 200*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrCancelled))

	require.NoError(t, pub2.Emit(ctx, rec("wc", "a", "2")))
	require.NoError(t, pub2.Close())

	keys, values := 0, 0
	for p, sub := range subs {
		g, err := collect(t, sub, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, g.Each(func(key model.EmissionKey, vs model.ValueIterator) error {
			assert.Equal(t, p, Partition(key, 2), "%s on the wrong partition", key)
			if key.Equal(model.NewEmissionKey("wc", "a")) {
				assert.Equal(t, []string{"1", "2"}, drain(t, vs))
			}
			return nil
		}))
		keys += g.Keys()
		values += g.Len()
	}
	assert.Equal(t, 3, keys)
	assert.Equal(t, 4, values)
}

func TestNATSShuffleAbortFailsCollect(t *testing.T) {
	cfg := runNATS(t, 1)
	sub := subscribe(t, cfg, 0)

	pub, err := NewPublisher(cfg, 1)
	require.NoError(t, err)
	require.NoError(t, pub.Emit(context.Background(), rec("wc", "a", "1")))
	require.NoError(t, pub.Abort(errors.New("map task 0 failed")))

	g, err := collect(t, sub, 5*time.Second)
	require.Error(t, err)
	assert.Nil(t, g)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.True(t, engine.IsFatal(err))
	assert.Contains(t, err.Error(), "map task 0 failed")
}

func TestNATSShuffleUndecodableRecordIsFatal(t *testing.T) {
	cfg := runNATS(t, 1)
	sub := subscribe(t, cfg, 0)

	nc, err := nats.Connect(cfg.NATSURL)
	require.NoError(t, err)
	defer nc.Close()
	require.NoError(t, nc.Publish(PartitionSubject(cfg.Subject, 0), []byte{0xff, 0xff}))
	require.NoError(t, nc.Flush())

	_, err = collect(t, sub, 5*time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrCorruptStream))
	assert.True(t, engine.IsFatal(err))
}

func TestNATSShuffleCollectCancelled(t *testing.T) {
	cfg := runNATS(t, 1)
	sub := subscribe(t, cfg, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sub.Collect(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrCancelled))
}
