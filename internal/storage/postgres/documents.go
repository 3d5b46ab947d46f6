package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Raventwist88/ontrakk/internal/storage"
	"github.com/jackc/pgx/v5"
)

const (
	selectDocumentQuery = `SELECT id, body, updated_at FROM documents WHERE collection = $1 AND id = $2`

	selectDocumentsQuery = `SELECT id, body, updated_at FROM documents WHERE collection = $1 ORDER BY id`

	upsertDocumentQuery = `INSERT INTO documents (collection, id, body, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	deleteDocumentQuery = `DELETE FROM documents WHERE collection = $1 AND id = $2`

	clearDocumentsQuery = `DELETE FROM documents WHERE collection = $1`
)

// PostgresDocumentsStorage keeps every collection in one jsonb table.
type PostgresDocumentsStorage struct {
	conn Conn
}

func NewPostgresDocumentsStorage(conn Conn) *PostgresDocumentsStorage {
	return &PostgresDocumentsStorage{conn: conn}
}

func (s *PostgresDocumentsStorage) Get(ctx context.Context, c storage.Collection, id string) (storage.Record, error) {
	if !c.Valid() {
		return storage.Record{}, storage.ErrUnknownCollection
	}

	var rec storage.Record
	var body []byte
	err := s.conn.QueryRow(ctx, selectDocumentQuery, string(c), strings.TrimSpace(id)).Scan(&rec.ID, &body, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Record{}, storage.ErrNotFound
		}
		return storage.Record{}, storage.Unavailable("get", err)
	}
	rec.Body = body
	return rec, nil
}

func (s *PostgresDocumentsStorage) GetAll(ctx context.Context, c storage.Collection) ([]storage.Record, error) {
	if !c.Valid() {
		return nil, storage.ErrUnknownCollection
	}

	rows, err := s.conn.Query(ctx, selectDocumentsQuery, string(c))
	if err != nil {
		return nil, storage.Unavailable("get all", err)
	}
	defer rows.Close()

	result := make([]storage.Record, 0)
	for rows.Next() {
		var rec storage.Record
		var body []byte
		if err := rows.Scan(&rec.ID, &body, &rec.UpdatedAt); err != nil {
			return nil, storage.Unavailable("get all", err)
		}
		rec.Body = body
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("get all", err)
	}
	return result, nil
}

func (s *PostgresDocumentsStorage) Put(ctx context.Context, c storage.Collection, rec storage.Record) error {
	if !c.Valid() {
		return storage.ErrUnknownCollection
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err := s.conn.Exec(ctx, upsertDocumentQuery, string(c), strings.TrimSpace(rec.ID), []byte(rec.Body), rec.UpdatedAt)
	return storage.Unavailable("put", err)
}

func (s *PostgresDocumentsStorage) Delete(ctx context.Context, c storage.Collection, id string) error {
	if !c.Valid() {
		return storage.ErrUnknownCollection
	}

	tag, err := s.conn.Exec(ctx, deleteDocumentQuery, string(c), strings.TrimSpace(id))
	if err != nil {
		return storage.Unavailable("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresDocumentsStorage) Clear(ctx context.Context, c storage.Collection) error {
	if !c.Valid() {
		return storage.ErrUnknownCollection
	}

	_, err := s.conn.Exec(ctx, clearDocumentsQuery, string(c))
	return storage.Unavailable("clear", err)
}

// Store methods - делегируем к documents storage

func (p *PostgresStorage) Get(ctx context.Context, c storage.Collection, id string) (storage.Record, error) {
	return p.documents.Get(ctx, c, id)
}

func (p *PostgresStorage) GetAll(ctx context.Context, c storage.Collection) ([]storage.Record, error) {
	return p.documents.GetAll(ctx, c)
}

func (p *PostgresStorage) Put(ctx context.Context, c storage.Collection, rec storage.Record) error {
	return p.documents.Put(ctx, c, rec)
}

func (p *PostgresStorage) Delete(ctx context.Context, c storage.Collection, id string) error {
	return p.documents.Delete(ctx, c, id)
}

func (p *PostgresStorage) Clear(ctx context.Context, c storage.Collection) error {
	return p.documents.Clear(ctx, c)
}
