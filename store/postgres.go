package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const createDocumentsTable = `
	CREATE TABLE IF NOT EXISTS agent_documents (
		kind TEXT PRIMARY KEY,
		doc JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresStore keeps each document as a JSONB row keyed by kind. It is
// an alternative to FileStore for deployments that already run Postgres.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresStore(dbURL string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createDocumentsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure agent_documents table: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"max_open_conns": 10,
		"max_idle_conns": 5,
	}).Info("Connected to database successfully")

	return &PostgresStore{db: db, logger: logger}, nil
}

func (s *PostgresStore) Load(ctx context.Context, kind Kind, v interface{}) error {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM agent_documents WHERE kind = $1`, string(kind),
	).Scan(&data)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.WithFields(logrus.Fields{
				"kind":  string(kind),
				"error": err.Error(),
			}).Warn("Failed to read document, starting empty")
		}
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.WithFields(logrus.Fields{
			"kind":  string(kind),
			"error": err.Error(),
		}).Warn("Failed to decode document, starting empty")
		return nil
	}

	return nil
}

func (s *PostgresStore) Save(ctx context.Context, kind Kind, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", kind, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agent_documents (kind, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (kind) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, string(kind), data)
	if err != nil {
		return fmt.Errorf("failed to write %s document: %w", kind, err)
	}

	return nil
}

func (s *PostgresStore) Close() {
	if s.db != nil {
		s.db.Close()
		s.logger.Info("Database connection closed")
	}
}
