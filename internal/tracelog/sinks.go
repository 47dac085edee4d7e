package tracelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes every appended TraceEntry as a JSON message to a
// Kafka topic, for external trace aggregation across many runs in a
// system that would otherwise only log in-process.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink builds a sink targeting topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// Write publishes entry. Errors are returned to Append's sink loop, which
// discards them and continues — a sink failure never breaks the in-process
// trace log.
func (s *KafkaSink) Write(entry TraceEntry) error {
	if s == nil || s.writer == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}
	return s.writer.WriteMessages(context.Background(), kafka.Message{Value: payload, Time: entry.Timestamp})
}

// Close shuts down the underlying writer.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// PostgresSink durably persists every appended TraceEntry as a row in a
// usage-ledger table, for callers that need queryable long-term retention
// beyond a single process's in-memory log.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSink opens a pool against dsn and ensures the ledger table
// exists under table (defaults to "rlm_trace_entries").
func NewPostgresSink(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	if table == "" {
		table = "rlm_trace_entries"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		depth INT NOT NULL,
		iteration INT NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		prompt_tokens INT NOT NULL DEFAULT 0,
		completion_tokens INT NOT NULL DEFAULT 0,
		total_tokens INT NOT NULL DEFAULT 0,
		payload JSONB NOT NULL
	)`, table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create trace table: %w", err)
	}
	return &PostgresSink{pool: pool, table: table}, nil
}

// Write inserts entry as a row.
func (s *PostgresSink) Write(entry TraceEntry) error {
	if s == nil || s.pool == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s
		(id, kind, depth, iteration, ts, prompt_tokens, completion_tokens, total_tokens, payload)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING`, s.table)
	_, err = s.pool.Exec(context.Background(), query,
		entry.ID, string(entry.Kind), entry.Depth, entry.Iteration, entry.Timestamp,
		entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens, payload)
	return err
}

// Close releases the underlying pool.
func (s *PostgresSink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ClickHouseSink inserts each trace entry as one row of a ClickHouse table
// built for
// high-volume analytical queries over trace history (model usage over
// time, error rates by depth, ...).
type ClickHouseSink struct {
	conn  clickhouse.Conn
	table string
}

// NewClickHouseSink opens a connection against dsn and ensures table exists.
func NewClickHouseSink(ctx context.Context, dsn, table string) (*ClickHouseSink, error) {
	if table == "" {
		table = "rlm_trace_entries"
	}
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id String,
		kind LowCardinality(String),
		depth Int32,
		iteration Int32,
		ts DateTime64(3),
		prompt_tokens Int32,
		completion_tokens Int32,
		total_tokens Int32
	) ENGINE = MergeTree() ORDER BY (ts, id)`, table)
	if err := conn.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create trace table: %w", err)
	}
	return &ClickHouseSink{conn: conn, table: table}, nil
}

// Write appends entry to the ClickHouse table.
func (s *ClickHouseSink) Write(entry TraceEntry) error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Exec(context.Background(),
		fmt.Sprintf("INSERT INTO %s (id, kind, depth, iteration, ts, prompt_tokens, completion_tokens, total_tokens) VALUES (?,?,?,?,?,?,?,?)", s.table),
		entry.ID, string(entry.Kind), entry.Depth, entry.Iteration, entry.Timestamp,
		entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens,
	)
}

// Close releases the underlying connection.
func (s *ClickHouseSink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
