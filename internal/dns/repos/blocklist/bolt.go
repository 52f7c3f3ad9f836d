package blocklist

import (
	"encoding/binary"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var (
	bucketExact    = []byte("exact")
	bucketWildcard = []byte("wildcard")
	bucketMeta     = []byte("meta")

	metaKeyUpdated = []byte("updated")
)

// Store is a compiled on-disk blocklist index. Parsing a large plain-text
// list is done once and the result compiled here; later startups load rules
// straight from the index instead of re-parsing.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (or creates) the index database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open blocklist index: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Rebuild replaces the index contents with the given rules in one
// transaction and stamps the update time.
func (s *Store) Rebuild(rules []Rule, now time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketExact, bucketWildcard, bucketMeta} {
			if tx.Bucket(bucket) != nil {
				if err := tx.DeleteBucket(bucket); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		for _, rule := range rules {
			bucket := bucketExact
			if rule.Kind == RuleWildcard {
				bucket = bucketWildcard
			}
			if err := tx.Bucket(bucket).Put([]byte(rule.Name), []byte{1}); err != nil {
				return err
			}
		}
		ts := binary.BigEndian.AppendUint64(nil, uint64(now.Unix()))
		return tx.Bucket(bucketMeta).Put(metaKeyUpdated, ts)
	})
}

// Rules loads every rule back out of the index.
func (s *Store) Rules() ([]Rule, error) {
	var rules []Rule
	err := s.db.View(func(tx *bbolt.Tx) error {
		for _, it := range []struct {
			bucket []byte
			kind   RuleKind
		}{
			{bucketExact, RuleExact},
			{bucketWildcard, RuleWildcard},
		} {
			b := tx.Bucket(it.bucket)
			if b == nil {
				continue
			}
			kind := it.kind
			if err := b.ForEach(func(k, _ []byte) error {
				rules = append(rules, Rule{Name: string(k), Kind: kind})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// UpdatedAt returns when the index was last rebuilt, or the zero time when
// the index is empty.
func (s *Store) UpdatedAt() time.Time {
	var ts time.Time
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		if v := b.Get(metaKeyUpdated); len(v) == 8 {
			ts = time.Unix(int64(binary.BigEndian.Uint64(v)), 0)
		}
		return nil
	})
	return ts
}
