package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic JSON CRUD over one key prefix.
type Entity[T any] struct {
	store    *Store
	prefix   string
	notFound error
	indexes  []Index[T]
}

// Index defines a non-unique secondary index on an entity.
// Index keys have the form {prefix}idx:{name}:{value}:{id} and no value.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:    s,
		prefix:   prefix,
		notFound: ErrNotFound,
	}
}

// WithNotFound sets the error returned when an ID is missing.
func (e *Entity[T]) WithNotFound(err error) *Entity[T] {
	e.notFound = err
	return e
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:   name,
		keyGen: keyGen,
	})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexPrefix(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value + ":")
}

func (e *Entity[T]) setIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Set(append(e.indexPrefix(idx.name, v), id...), nil); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) deleteIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Delete(append(e.indexPrefix(idx.name, v), id...)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}

// Create stores a new entity under id.
// Returns ErrAlreadyExists if an entity with this ID already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(e.key(id))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := set(txn, e.key(id), entity); err != nil {
			return err
		}
		return e.setIndexes(txn, id, entity)
	})
	return translate(err)
}

// Get retrieves an entity by ID.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity T
	err := e.store.db.View(func(txn *badger.Txn) error {
		return e.getTxn(txn, id, &entity)
	})
	if err != nil {
		return nil, translate(err)
	}
	return &entity, nil
}

func (e *Entity[T]) getTxn(txn *badger.Txn, id string, dest *T) error {
	err := get(txn, e.key(id), dest)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return e.notFound
	}
	if err != nil {
		return fmt.Errorf("failed to get key: %w", err)
	}
	return nil
}

// Update applies fn to the stored entity inside one transaction.
// fn reports whether it changed anything; when it returns false nothing is
// written. Indexes are rebuilt from the old and new values.
func (e *Entity[T]) Update(ctx context.Context, id string, fn func(*T) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		var old T
		if err := e.getTxn(txn, id, &old); err != nil {
			return err
		}

		// fn mutates a copy made by a JSON round trip so old keeps the
		// original index values.
		var updated T
		if err := e.getTxn(txn, id, &updated); err != nil {
			return err
		}
		changed, err := fn(&updated)
		if err != nil || !changed {
			return err
		}

		if err := e.deleteIndexes(txn, id, &old); err != nil {
			return err
		}
		if err := set(txn, e.key(id), &updated); err != nil {
			return err
		}
		return e.setIndexes(txn, id, &updated)
	})
	return translate(err)
}

// ListByIndex returns every entity whose index name has value.
func (e *Entity[T]) ListByIndex(ctx context.Context, name, value string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := e.indexPrefix(name, value)
	var out []*T

	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // We only need keys

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			id := string(it.Item().Key()[len(prefix):])
			var entity T
			if err := e.getTxn(txn, id, &entity); err != nil {
				if errors.Is(err, e.notFound) {
					continue // dangling index entry
				}
				return err
			}
			out = append(out, &entity)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Skip index keys
				key := string(it.Item().Key())
				if strings.HasPrefix(key[len(e.prefix):], "idx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}
			return nil
		})
	}
}
