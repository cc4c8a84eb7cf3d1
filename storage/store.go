// Package storage provides the SQLite-backed document gateway the
// modification pipeline applies its batches through.
//
// Each Apply call runs in one SQL transaction. Per-document failures are
// reported in the result; when any occur and IgnoreErrors is unset the
// transaction is rolled back, so a batch either lands completely or not
// at all.
package storage

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/modx/db"
	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/logger"
	"github.com/teranos/modx/modify"
)

// Query constants
const (
	documentSelectQuery = `
		SELECT rev, body, compressed FROM documents
		WHERE collection = ? AND key = ?`

	documentInsertQuery = `
		INSERT INTO documents (collection, key, rev, body, compressed)
		VALUES (?, ?, ?, ?, ?)`

	documentUpdateQuery = `
		UPDATE documents SET rev = ?, body = ?, compressed = ?, updated_at = CURRENT_TIMESTAMP
		WHERE collection = ? AND key = ?`

	documentDeleteQuery = `
		DELETE FROM documents WHERE collection = ? AND key = ?`

	documentExistsQuery = `
		SELECT EXISTS(SELECT 1 FROM documents WHERE collection = ? AND key = ?)`

	nextKeyQuery = `
		INSERT INTO key_sequences (collection, last_value) VALUES (?, 1)
		ON CONFLICT(collection) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value`

	collectionStatsQuery = `
		SELECT collection, COUNT(*), COALESCE(SUM(LENGTH(body)), 0), COALESCE(SUM(compressed), 0)
		FROM documents GROUP BY collection ORDER BY collection`
)

// KeyStyle selects how keys are assigned to documents inserted without one.
type KeyStyle string

const (
	KeyStyleSequence KeyStyle = "sequence"
	KeyStyleUUID     KeyStyle = "uuid"
)

// Options configures a Store.
type Options struct {
	CompressDocuments bool
	KeyStyle          KeyStyle
	Logger            *zap.SugaredLogger
}

// Store implements modify.Gateway on the documents table.
type Store struct {
	db     *sql.DB
	codec  *bodyCodec
	revs   *revisionGenerator
	keys   KeyStyle
	logger *zap.SugaredLogger
}

// NewStore returns a store over a migrated database.
func NewStore(conn *sql.DB, opts Options) (*Store, error) {
	codec, err := newBodyCodec(opts.CompressDocuments)
	if err != nil {
		return nil, err
	}
	keys := opts.KeyStyle
	switch keys {
	case "":
		keys = KeyStyleSequence
	case KeyStyleSequence, KeyStyleUUID:
	default:
		return nil, errors.NewInvalidRequestError("unknown key style %q", keys)
	}
	return &Store{
		db:     conn,
		codec:  codec,
		revs:   newRevisionGenerator(),
		keys:   keys,
		logger: logger.AddDBSymbol(logger.OrGlobal(opts.Logger)),
	}, nil
}

// Close releases the compression codec. The database is owned by the caller.
func (s *Store) Close() {
	s.codec.close()
}

// Apply implements modify.Gateway.
func (s *Store) Apply(ctx context.Context, req modify.Request) (modify.Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return nil, errors.Wrap(db.ErrDatabaseClosed, "begin transaction")
		}
		return nil, errors.Wrap(err, "begin transaction")
	}

	res := make(modify.Result, len(req.Documents))
	failed := 0
	for i, doc := range req.Documents {
		entry, err := s.applyOne(ctx, tx, req, doc)
		if err != nil {
			tx.Rollback()
			return nil, errors.Wrapf(err, "%s document %d", req.Operation, i)
		}
		if entry.Failed() {
			failed++
		}
		res[i] = entry
	}

	if failed > 0 && !req.Options.IgnoreErrors {
		if err := tx.Rollback(); err != nil {
			return nil, errors.Wrap(err, "rollback")
		}
		s.logger.Debugw("Rolled back batch",
			logger.FieldCollection, req.Collection,
			logger.FieldOperation, req.Operation.String(),
			logger.FieldDocuments, len(req.Documents),
			"failed", failed)
		return res, nil
	}
	if req.Operation == modify.OpLookup {
		return res, errors.Wrap(tx.Rollback(), "finish lookup")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	s.logger.Debugw("Applied batch",
		logger.FieldCollection, req.Collection,
		logger.FieldOperation, req.Operation.String(),
		logger.FieldDocuments, len(req.Documents),
		"failed", failed)
	return res, nil
}

// stored is a document as read from the table.
type stored struct {
	rev  string
	doc  document.Value
	body document.Value
}

func (s *Store) load(ctx context.Context, tx *sql.Tx, collection, key string) (*stored, error) {
	var (
		rev        string
		data       []byte
		compressed bool
	)
	err := tx.QueryRowContext(ctx, documentSelectQuery, collection, key).Scan(&rev, &data, &compressed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s/%s", collection, key)
	}
	body, err := s.codec.decode(data, compressed)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s/%s", collection, key)
	}
	return &stored{rev: rev, body: body, doc: withSystemAttributes(body, collection, key, rev)}, nil
}

// write stores body under key with a fresh (or restored) revision and
// returns the revision.
func (s *Store) write(ctx context.Context, tx *sql.Tx, collection, key string, body document.Value, rev string, exists bool) (string, error) {
	data, compressed, err := s.codec.encode(body)
	if err != nil {
		return "", err
	}
	if rev == "" {
		rev = s.revs.next(collection, key, data)
	}
	if exists {
		_, err = tx.ExecContext(ctx, documentUpdateQuery, rev, data, compressed, collection, key)
	} else {
		_, err = tx.ExecContext(ctx, documentInsertQuery, collection, key, rev, data, compressed)
	}
	if err != nil {
		if db.IsKeyConflict(err) {
			return "", errors.WithSecondaryError(
				errors.Wrapf(db.ErrKeyConflict, "write %s/%s", collection, key), err)
		}
		return "", errors.Wrapf(err, "write %s/%s", collection, key)
	}
	return rev, nil
}

func (s *Store) generateKey(ctx context.Context, tx *sql.Tx, collection string) (string, error) {
	for attempt := 0; attempt < 16; attempt++ {
		var key string
		switch s.keys {
		case KeyStyleUUID:
			key = uuid.NewString()
		default:
			var n int64
			if err := tx.QueryRowContext(ctx, nextKeyQuery, collection).Scan(&n); err != nil {
				return "", errors.Wrap(err, "next key")
			}
			key = strconv.FormatInt(n, 10)
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, documentExistsQuery, collection, key).Scan(&exists); err != nil {
			return "", errors.Wrap(err, "check generated key")
		}
		if !exists {
			return key, nil
		}
	}
	return "", errors.Newf("could not generate a free key in %s", collection)
}

// CollectionStats summarises one collection.
type CollectionStats struct {
	Collection      string `json:"collection" yaml:"collection"`
	Documents       int64  `json:"documents" yaml:"documents"`
	BodyBytes       int64  `json:"body_bytes" yaml:"body_bytes"`
	CompressedCount int64  `json:"compressed" yaml:"compressed"`
}

// Stats returns per-collection document counts.
func (s *Store) Stats(ctx context.Context) ([]CollectionStats, error) {
	rows, err := s.db.QueryContext(ctx, collectionStatsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query collection stats")
	}
	defer rows.Close()

	var out []CollectionStats
	for rows.Next() {
		var cs CollectionStats
		if err := rows.Scan(&cs.Collection, &cs.Documents, &cs.BodyBytes, &cs.CompressedCount); err != nil {
			return nil, errors.Wrap(err, "scan collection stats")
		}
		out = append(out, cs)
	}
	return out, errors.Wrap(rows.Err(), "iterate collection stats")
}
