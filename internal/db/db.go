package db

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by Get for a missing entry.
var ErrNotFound = errors.New("entry not found")

// DB is the client's local key-value state.
type DB struct {
	kv *badger.DB
}

// New opens the store under dir. An empty dir opens an in-memory store.
func New(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	kv, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open state store")
	}
	return &DB{kv: kv}, nil
}

// GetJSON decodes the entry stored under key into v.
func (db *DB) GetJSON(ctx context.Context, key string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.kv.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrapf(err, "get %s", key)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// PutJSON replaces the entry stored under key.
func (db *DB) PutJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return db.RunInTx(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	return db.RunInTx(ctx, func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (db *DB) RunInTx(ctx context.Context, fn func(*badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := db.kv.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		log.Error().Err(err).Msg("state store commit failed")
		return errors.Wrap(err, "commit")
	}
	return nil
}

// Close closes the store
func (db *DB) Close() error {
	return db.kv.Close()
}
