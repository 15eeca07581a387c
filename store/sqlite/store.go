/*
Package sqlite provides a durable KVStore on top of an embedded SQLite
database. All key-value pairs live in a single table ordered by the raw
key bytes, so range iteration matches the in-memory stores.
*/
package sqlite

import (
	"database/sql"
	"time"

	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/store"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	k BLOB PRIMARY KEY,
	v BLOB
) WITHOUT ROWID`

// Store is a KVStore backed by a SQLite file.
type Store struct {
	db *sql.DB
}

var _ store.CacheableKVStore = (*Store)(nil)

// Open opens or creates the database at path and makes sure the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+
		"?_pragma=journal_mode(WAL)"+
		"&_pragma=busy_timeout(5000)"+
		"&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "open %q: %s", path, err)
	}
	// Batches run in a transaction, a single connection serializes them
	// with the plain reads and writes.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(errors.ErrDatabase, "initialize schema: %s", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func dbErr(op string, err error) error {
	return errors.Wrapf(errors.ErrDatabase, "%s: %s", op, err)
}

// Get returns nil iff key doesn't exist.
func (s *Store) Get(key []byte) ([]byte, error) {
	var value []byte
	switch err := s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&value); {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, dbErr("get", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Has(key []byte) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM kv WHERE k = ?`, key).Scan(&n); err != nil {
		return false, dbErr("has", err)
	}
	return n > 0, nil
}

func (s *Store) Set(key, value []byte) error {
	return set(s.db, key, value)
}

func (s *Store) Delete(key []byte) error {
	return del(s.db, key)
}

// Iterator loads all pairs in [start, end) in ascending key order.
func (s *Store) Iterator(start, end []byte) (store.Iterator, error) {
	return s.scan(start, end, "ASC")
}

// ReverseIterator loads all pairs in [start, end) in descending key order.
func (s *Store) ReverseIterator(start, end []byte) (store.Iterator, error) {
	return s.scan(start, end, "DESC")
}

func (s *Store) scan(start, end []byte, order string) (store.Iterator, error) {
	query := `SELECT k, v FROM kv WHERE 1 = 1`
	var args []interface{}
	if start != nil {
		query += ` AND k >= ?`
		args = append(args, start)
	}
	if end != nil {
		query += ` AND k < ?`
		args = append(args, end)
	}
	query += ` ORDER BY k ` + order

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, dbErr("iterate", err)
	}
	defer rows.Close()

	var models []store.Model
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, dbErr("scan", err)
		}
		if v == nil {
			v = []byte{}
		}
		models = append(models, store.Pair(k, v))
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate", err)
	}
	return store.NewSliceIterator(models), nil
}

// NewBatch returns a batch that is written in a single transaction.
func (s *Store) NewBatch() store.Batch {
	return &batch{db: s.db}
}

// CacheWrap places a btree cache over the database. Writing the cache
// commits all of its changes atomically.
func (s *Store) CacheWrap() store.KVCacheWrap {
	return store.NewBTreeCacheWrap(s, s.NewBatch(), nil)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func set(db execer, key, value []byte) error {
	_, err := db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	if err != nil {
		return dbErr("set", err)
	}
	return nil
}

func del(db execer, key []byte) error {
	if _, err := db.Exec(`DELETE FROM kv WHERE k = ?`, key); err != nil {
		return dbErr("delete", err)
	}
	return nil
}

type batch struct {
	db  *sql.DB
	ops []store.Op
}

func (b *batch) Set(key, value []byte) error {
	b.ops = append(b.ops, store.SetOp(key, value))
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, store.DelOp(key))
	return nil
}

// Write applies all collected ops in one transaction. Nothing is
// written if any of them fails.
func (b *batch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}
	tx, err := b.db.Begin()
	if err != nil {
		return dbErr("begin", err)
	}
	w := txWriter{tx: tx}
	for _, op := range b.ops {
		if err := op.Apply(w); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit", err)
	}
	b.ops = nil
	return nil
}

// txWriter is a SetDeleter running inside a transaction.
type txWriter struct {
	tx *sql.Tx
}

func (w txWriter) Set(key, value []byte) error {
	return set(w.tx, key, value)
}

func (w txWriter) Delete(key []byte) error {
	return del(w.tx, key)
}
