package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time // injectable for deterministic tests
}

// Open connects to the database, verifies the connection, and applies the
// embedded schema.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Postgres{pool: pool, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: apply schema: %w", err)
		}
	}
	return nil
}

func (s *Postgres) Close()                       { s.pool.Close() }
func (s *Postgres) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

const insertRecordSQL = `
	INSERT INTO telemetry_records
		(device_key, topic, event_time, received_at, payload, features,
		 health_status, reason, fingerprint)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT ON CONSTRAINT uq_record_dedupe DO NOTHING
	RETURNING id`

// Insert registers the device on first sight, then attempts the record
// insert. The dedupe check rides on the uniqueness constraint inside the
// same statement, so two concurrent inserts of the same tuple store exactly
// one record regardless of interleaving.
func (s *Postgres) Insert(ctx context.Context, rec *Record) (Outcome, error) {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = s.now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO devices (device_key, gateway) VALUES ($1, $2)
		 ON CONFLICT (device_key) DO NOTHING`,
		rec.DeviceKey, rec.Gateway)
	if err != nil {
		return 0, fmt.Errorf("store: register device %q: %w", rec.DeviceKey, err)
	}

	err = s.pool.QueryRow(ctx, insertRecordSQL,
		rec.DeviceKey, rec.Topic, rec.EventTime, rec.ReceivedAt,
		rec.Payload, rec.Features, rec.Health, rec.Reason, rec.Fingerprint,
	).Scan(&rec.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// The constraint swallowed the row: a record with this tuple
		// already exists.
		return DuplicateIgnored, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: insert record: %w", err)
	}
	return Inserted, nil
}

const latestPerDeviceSQL = `
	SELECT r.id, r.device_key, r.topic, r.event_time, r.received_at,
	       COALESCE(d.gateway, ''), r.payload, r.features,
	       r.health_status, r.reason, r.fingerprint
	FROM (
		SELECT DISTINCT ON (device_key) *
		FROM telemetry_records
		ORDER BY device_key, COALESCE(event_time, received_at) DESC, id DESC
	) r
	LEFT JOIN devices d ON d.device_key = r.device_key
	ORDER BY COALESCE(r.event_time, r.received_at) DESC, r.id DESC
	LIMIT $1`

func (s *Postgres) LatestPerDevice(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, latestPerDeviceSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("store: latest per device: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

const historySQL = `
	SELECT r.id, r.device_key, r.topic, r.event_time, r.received_at,
	       COALESCE(d.gateway, ''), r.payload, r.features,
	       r.health_status, r.reason, r.fingerprint
	FROM telemetry_records r
	LEFT JOIN devices d ON d.device_key = r.device_key
	WHERE r.device_key = $1
	ORDER BY COALESCE(r.event_time, r.received_at) DESC, r.id DESC
	LIMIT $2`

func (s *Postgres) History(ctx context.Context, deviceKey string, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, historySQL, deviceKey, limit)
	if err != nil {
		return nil, fmt.Errorf("store: history %q: %w", deviceKey, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Postgres) Count(ctx context.Context, deviceKey string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM telemetry_records WHERE device_key = $1`,
		deviceKey,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count %q: %w", deviceKey, err)
	}
	return n, nil
}

const timeseriesSQL = `
	SELECT COALESCE(event_time, received_at), payload
	FROM telemetry_records
	WHERE device_key = $1
	ORDER BY COALESCE(event_time, received_at) DESC, id DESC
	LIMIT $2`

func (s *Postgres) Timeseries(ctx context.Context, deviceKey, metric string, limit int) ([]Point, error) {
	rows, err := s.pool.Query(ctx, timeseriesSQL, deviceKey, limit)
	if err != nil {
		return nil, fmt.Errorf("store: timeseries %q: %w", deviceKey, err)
	}
	defer rows.Close()

	points := make([]Point, 0, limit)
	for rows.Next() {
		var p Point
		var payload []byte
		if err := rows.Scan(&p.T, &payload); err != nil {
			return nil, fmt.Errorf("store: scan timeseries row: %w", err)
		}
		p.V = metricValue(payload, metric)
		points = append(points, p)
	}
	return points, rows.Err()
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	out := make([]Record, 0)
	for rows.Next() {
		var r Record
		var payload []byte
		err := rows.Scan(&r.ID, &r.DeviceKey, &r.Topic, &r.EventTime,
			&r.ReceivedAt, &r.Gateway, &payload, &r.Features,
			&r.Health, &r.Reason, &r.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		r.Payload = payload
		out = append(out, r)
	}
	return out, rows.Err()
}
