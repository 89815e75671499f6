package output

import (
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/model"
	"context"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cockroachdb/errors"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS saw_output (
    Timestamp DateTime,
    Partition Int32,
    Target    String,
    GroupKey  String,
    Line      String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Target, GroupKey, Timestamp);
`

type outputRow struct {
	target string
	group  string
	line   string
}

// ClickHouseWriter buffers output lines and inserts them in one batch on Close.
type ClickHouseWriter struct {
	conn      driver.Conn
	partition int32

	mu   sync.Mutex
	rows []outputRow
}

// NewClickHouseWriter connects to ClickHouse and ensures the output table
// exists. Rows carry the reduce partition that produced them.
func NewClickHouseWriter(cfg config.ClickHouseConfig, partition int) (*ClickHouseWriter, error) {
	conn, err := clickhouse.Open(clickhouseOptions(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to clickhouse")
	}
	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "clickhouse at %s is not reachable", clickhouseAddr(cfg))
	}
	if err := conn.Exec(ctx, createTableStatement); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to create saw_output table")
	}
	log.Printf("Writing partition %d output to ClickHouse at %s", partition, clickhouseAddr(cfg))

	return &ClickHouseWriter{conn: conn, partition: int32(partition)}, nil
}

func clickhouseAddr(cfg config.ClickHouseConfig) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

func clickhouseOptions(cfg config.ClickHouseConfig) *clickhouse.Options {
	return &clickhouse.Options{
		Addr: []string{clickhouseAddr(cfg)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	}
}

// WriteLine implements model.LineWriter.
func (w *ClickHouseWriter) WriteLine(_ context.Context, key model.EmissionKey, line string) error {
	w.mu.Lock()
	w.rows = append(w.rows, outputRow{target: key.Target, group: string(key.Group), line: line})
	w.mu.Unlock()
	return nil
}

// Close sends the buffered rows and closes the connection.
func (w *ClickHouseWriter) Close() error {
	w.mu.Lock()
	rows := w.rows
	w.rows = nil
	w.mu.Unlock()
	defer w.conn.Close()

	if len(rows) == 0 {
		return nil
	}

	ctx := context.Background()
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO saw_output")
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	now := time.Now()
	for _, row := range rows {
		if err := batch.Append(now, w.partition, row.target, row.group, row.line); err != nil {
			return errors.Wrap(err, "failed to append line to batch")
		}
	}
	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "failed to send batch")
	}

	log.Printf("Wrote %d output lines to ClickHouse", len(rows))
	return nil
}
