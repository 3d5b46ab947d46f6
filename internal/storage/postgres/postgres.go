package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn — подмножество pgxpool.Pool, которое использует storage.
// pgxmock pools satisfy it in tests.
type Conn interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStorage — Postgres реализация storage.Store и storage.SettingsStorage
type PostgresStorage struct {
	conn      Conn
	documents *PostgresDocumentsStorage
	settings  *PostgresSettingsStorage
}

// New создаёт PostgresStorage поверх нового пула и проверяет соединение
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	ps, err := NewWithConn(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return ps, nil
}

// NewWithConn wraps an existing connection.
func NewWithConn(ctx context.Context, conn Conn) (*PostgresStorage, error) {
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStorage{
		conn:      conn,
		documents: NewPostgresDocumentsStorage(conn),
		settings:  NewPostgresSettingsStorage(conn),
	}, nil
}

// GetSettingsStorage returns the settings sub-store.
func (p *PostgresStorage) GetSettingsStorage() *PostgresSettingsStorage {
	return p.settings
}

// Close закрывает пул соединений
func (p *PostgresStorage) Close() error {
	p.conn.Close()
	return nil
}
