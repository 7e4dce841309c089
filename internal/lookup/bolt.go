package lookup

import (
	"errors"
	"fmt"
	"io"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	codesBucket = []byte("codes")
	present     = []byte("t")
)

// BoltStore keeps the known codes in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(codesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

// Add stores codes, ignoring blanks.
func (s *BoltStore) Add(codes ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(codesBucket)
		for _, c := range codes {
			c = Normalize(c)
			if c == "" {
				continue
			}
			if err := b.Put([]byte(c), present); err != nil {
				return err
			}
		}
		return nil
	})
}

// Import reads a text list from r in one transaction and returns how many
// lines were stored.
func (s *BoltStore) Import(r io.Reader) (int, error) {
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(codesBucket)
		return scanCodes(r, func(code string) error {
			n++
			return b.Put([]byte(code), present)
		})
	})
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	return n, nil
}

func (s *BoltStore) Contains(code string) (bool, error) {
	code = Normalize(code)
	if code == "" {
		return false, nil
	}
	var hit bool
	err := s.db.View(func(tx *bolt.Tx) error {
		hit = tx.Bucket(codesBucket).Get([]byte(code)) != nil
		return nil
	})
	return hit, err
}

// Count returns the number of stored codes.
func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(codesBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	if s.db == nil {
		return errors.New("store already closed")
	}
	err := s.db.Close()
	s.db = nil
	return err
}
