package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/bft-labs/linkarq/pkg/log"
)

var payloadBucket = []byte("payloads")

// ErrStopIteration may be returned by a ForEach callback to end the
// iteration without error.
var ErrStopIteration = errors.New("sink: stop iteration")

// Bolt persists delivered payloads in a bbolt database. Keys are the
// big-endian delivery index, counting from zero across reopens.
type Bolt struct {
	db     *bbolt.DB
	logger log.Logger

	mu  sync.Mutex
	err error
}

// BoltOption configures a Bolt sink.
type BoltOption func(*Bolt)

// WithBoltLogger sets the logger used to report storage errors.
func WithBoltLogger(logger log.Logger) BoltOption {
	return func(b *Bolt) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, opts ...BoltOption) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(payloadBucket); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sink: %w", err)
	}

	b := &Bolt{db: db, logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Deliver stores payload under the next index. After the first storage
// error further payloads are dropped.
func (b *Bolt) Deliver(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(payloadBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(indexKey(seq-1), payload)
	})
	if err != nil {
		b.err = fmt.Errorf("sink: store payload: %w", err)
		b.logger.Error("failed to store payload", log.Err(err), log.Int("bytes", len(payload)))
	}
}

// Get returns the payload stored at index, or nil.
func (b *Bolt) Get(index uint64) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(payloadBucket).Get(indexKey(index)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

// Count returns the number of stored payloads.
func (b *Bolt) Count() (int, error) {
	var count int
	err := b.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(payloadBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// ForEach calls fn for each stored payload in delivery order. The
// payload slice is only valid during the call.
func (b *Bolt) ForEach(fn func(index uint64, payload []byte) error) error {
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(payloadBucket).ForEach(func(k, v []byte) error {
			return fn(binary.BigEndian.Uint64(k), v)
		})
	})
	if errors.Is(err, ErrStopIteration) {
		return nil
	}
	return err
}

// Err returns the first storage error seen by Deliver.
func (b *Bolt) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Path returns the database file path.
func (b *Bolt) Path() string {
	return b.db.Path()
}

// Close closes the database.
func (b *Bolt) Close() error {
	if b == nil {
		return nil
	}
	return b.db.Close()
}

func indexKey(index uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, index)
	return k
}
