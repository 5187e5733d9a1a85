package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/sw33tLie/partscope/pkg/component"
)

// Badger stores entries in an embedded BadgerDB. Entries also carry a
// Badger TTL so stale data is compacted away without a read.
type Badger struct {
	db  *badger.DB
	Now func() time.Time
}

// OpenBadger opens a database in dir, or an in-memory one when dir is "".
func OpenBadger(dir string) (*Badger, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Badger{db: db, Now: time.Now}, nil
}

func (b *Badger) Get(ctx context.Context, key string) Result {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return miss()
	}
	if err != nil {
		return failed(err)
	}

	e, err := decode(key, data)
	if err != nil {
		return failed(err)
	}
	if e.Expired(b.Now()) {
		if err := b.db.Update(func(txn *badger.Txn) error { return txn.Delete([]byte(key)) }); err != nil {
			return failed(err)
		}
		return miss()
	}
	return hit(e)
}

func (b *Badger) Put(ctx context.Context, key string, components []component.Component, ttl time.Duration) error {
	ttl = normalizeTTL(ttl)
	payload, err := encode(components, b.Now(), ttl)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), payload).WithTTL(ttl))
	})
}

func (b *Badger) Invalidate(ctx context.Context, pattern string) (int, error) {
	glob := globPattern(pattern)
	prefix := []byte(literalPrefix(glob))

	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			ok, err := path.Match(glob, string(k))
			if err != nil {
				return err
			}
			if ok {
				keys = append(keys, k)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (b *Badger) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
