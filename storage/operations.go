package storage

import (
	"context"
	"database/sql"

	"github.com/teranos/modx/db"
	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/modify"
)

// applyOne runs one document of a request. A returned error is fatal for
// the whole call; document-level failures come back inside the entry.
func (s *Store) applyOne(ctx context.Context, tx *sql.Tx, req modify.Request, doc document.Value) (modify.ResultEntry, error) {
	switch req.Operation {
	case modify.OpInsert:
		return s.insert(ctx, tx, req.Collection, doc, req.Options)
	case modify.OpUpdate, modify.OpReplace:
		return s.update(ctx, tx, req.Collection, doc, req.Operation == modify.OpReplace, req.Options)
	case modify.OpRemove:
		return s.remove(ctx, tx, req.Collection, doc, req.Options)
	case modify.OpLookup:
		return s.lookup(ctx, tx, req.Collection, doc, req.Options)
	}
	return modify.ResultEntry{}, errors.AssertionFailedf("unknown operation %s", req.Operation)
}

func failed(code modify.ErrorCode) modify.ResultEntry {
	return modify.ResultEntry{Err: modify.NewError(code)}
}

func failedf(code modify.ErrorCode, format string, args ...interface{}) modify.ResultEntry {
	return modify.ResultEntry{Err: modify.NewErrorf(code, format, args...)}
}

var errConflict = modify.NewErrorf(modify.CodeConflict, "conflict, _rev values do not match")

// identify extracts the key and the expected revision of an existing
// document. rev is empty when no revision check applies.
func identify(doc document.Value, opts modify.OperationConfig) (key, rev string, entry *modify.ResultEntry) {
	key, rev, err := modify.ExtractKeyAndRevision(doc, !opts.IgnoreRevs)
	if err != nil {
		var docErr *modify.Error
		if errors.As(err, &docErr) {
			return "", "", &modify.ResultEntry{Err: docErr}
		}
		e := failed(modify.CodeDocumentTypeInvalid)
		return "", "", &e
	}
	if !ValidKey(key) {
		e := failedf(modify.CodeDocumentKeyBad, "illegal document key %q", key)
		return "", "", &e
	}
	return key, rev, nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, collection string, doc document.Value, opts modify.OperationConfig) (modify.ResultEntry, error) {
	if !doc.IsObject() {
		return failed(modify.CodeDocumentTypeInvalid), nil
	}

	var key string
	switch k := doc.Get(document.KeyAttribute); {
	case k.IsNone():
		generated, err := s.generateKey(ctx, tx, collection)
		if err != nil {
			return modify.ResultEntry{}, err
		}
		key = generated
	case !k.IsString() || !ValidKey(k.StringValue()):
		return failedf(modify.CodeDocumentKeyBad, "illegal document key %s", k), nil
	default:
		key = k.StringValue()
	}

	old, err := s.load(ctx, tx, collection, key)
	if err != nil {
		return modify.ResultEntry{}, err
	}
	if old != nil && !opts.Overwrite {
		return keyConflict(key), nil
	}

	body := doc
	if old != nil && !opts.IsReplace {
		body = document.Merge(old.body, doc.Without(systemAttributes...), opts.KeepNull, opts.MergeObjects)
	}

	restoreRev := ""
	if opts.IsRestore {
		restoreRev = doc.Get(document.RevAttribute).StringValue()
	}
	rev, err := s.write(ctx, tx, collection, key, body, restoreRev, old != nil)
	if db.IsKeyConflict(err) {
		return keyConflict(key), nil
	}
	if err != nil {
		return modify.ResultEntry{}, err
	}

	entry := s.entry(collection, key, rev, body, old, opts)
	return entry, nil
}

func keyConflict(key string) modify.ResultEntry {
	return failedf(modify.CodeUniqueConstraintViolated,
		"unique constraint violated - in index primary of type primary over '_key'; conflicting key: %s", key)
}

func (s *Store) update(ctx context.Context, tx *sql.Tx, collection string, doc document.Value, replace bool, opts modify.OperationConfig) (modify.ResultEntry, error) {
	if !doc.IsObject() {
		return failed(modify.CodeDocumentTypeInvalid), nil
	}
	key, rev, bad := identify(doc, opts)
	if bad != nil {
		return *bad, nil
	}

	old, err := s.load(ctx, tx, collection, key)
	if err != nil {
		return modify.ResultEntry{}, err
	}
	if old == nil {
		return failed(modify.CodeDocumentNotFound), nil
	}
	if rev != "" && rev != old.rev {
		return modify.ResultEntry{Err: errConflict, OldRev: old.rev}, nil
	}

	patch := doc.Without(systemAttributes...)
	body := patch
	if !replace {
		body = document.Merge(old.body, patch, opts.KeepNull, opts.MergeObjects)
	}

	restoreRev := ""
	if opts.IsRestore {
		restoreRev = doc.Get(document.RevAttribute).StringValue()
	}
	newRev, err := s.write(ctx, tx, collection, key, body, restoreRev, true)
	if err != nil {
		return modify.ResultEntry{}, err
	}
	return s.entry(collection, key, newRev, body, old, opts), nil
}

func (s *Store) remove(ctx context.Context, tx *sql.Tx, collection string, doc document.Value, opts modify.OperationConfig) (modify.ResultEntry, error) {
	key, rev, bad := identify(doc, opts)
	if bad != nil {
		return *bad, nil
	}

	old, err := s.load(ctx, tx, collection, key)
	if err != nil {
		return modify.ResultEntry{}, err
	}
	if old == nil {
		return failed(modify.CodeDocumentNotFound), nil
	}
	if rev != "" && rev != old.rev {
		return modify.ResultEntry{Err: errConflict, OldRev: old.rev}, nil
	}
	if _, err := tx.ExecContext(ctx, documentDeleteQuery, collection, key); err != nil {
		return modify.ResultEntry{}, errors.Wrapf(err, "delete %s/%s", collection, key)
	}

	entry := modify.ResultEntry{
		ID:  collection + "/" + key,
		Key: key,
		Rev: old.rev,
		Old: document.None(),
		New: document.None(),
	}
	if opts.ReturnOld {
		entry.Old = old.doc
	}
	return entry, nil
}

func (s *Store) lookup(ctx context.Context, tx *sql.Tx, collection string, doc document.Value, opts modify.OperationConfig) (modify.ResultEntry, error) {
	key, rev, bad := identify(doc, opts)
	if bad != nil {
		return *bad, nil
	}

	found, err := s.load(ctx, tx, collection, key)
	if err != nil {
		return modify.ResultEntry{}, err
	}
	if found == nil {
		return failed(modify.CodeDocumentNotFound), nil
	}
	if rev != "" && rev != found.rev {
		return modify.ResultEntry{Err: errConflict, OldRev: found.rev}, nil
	}
	return modify.ResultEntry{
		ID:  collection + "/" + key,
		Key: key,
		Rev: found.rev,
		Old: document.None(),
		New: found.doc,
	}, nil
}

// entry builds the success entry for a write, attaching old and new
// documents as requested.
func (s *Store) entry(collection, key, rev string, body document.Value, old *stored, opts modify.OperationConfig) modify.ResultEntry {
	entry := modify.ResultEntry{
		ID:  collection + "/" + key,
		Key: key,
		Rev: rev,
		Old: document.None(),
		New: document.None(),
	}
	if old != nil {
		entry.OldRev = old.rev
		if opts.ReturnOld {
			entry.Old = old.doc
		}
	}
	if opts.ReturnNew {
		entry.New = withSystemAttributes(body, collection, key, rev)
	}
	return entry
}
