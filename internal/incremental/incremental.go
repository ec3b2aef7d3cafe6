// Package incremental implements the persistent key→digest store that
// lets a re-scan skip items unchanged since a prior run (spec.md
// §4.3). It generalizes the source's dbm-backed Incremental class,
// swapping the Unix-only dbm/anydbm module for go.etcd.io/bbolt so the
// store is a single portable file rather than a platform-specific
// format.
package incremental

import (
	"fmt"
	"io"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tehmaze/classified/internal/checksum"
	"github.com/tehmaze/classified/internal/meta"
)

const bucketName = "incremental"

// AlgorithmMtime selects the cheap, time-based digest instead of a
// content hash.
const AlgorithmMtime = "mtime"

// DefaultAlgorithm matches the source's default_algorithm.
const DefaultAlgorithm = "sha1"

// DefaultBlockSize matches the source's default_blocksize.
const DefaultBlockSize = 16384

// Item is the subset of meta.Item the cache needs: its path string,
// modification time, and byte content.
type Item interface {
	String() string
	ModTime() time.Time
	Open() (io.ReadCloser, error)
}

var _ Item = (*meta.Item)(nil)

// Store is the on-disk key→digest map described by spec.md §4.3/§6:
// keys are UTF-8 paths, values are UTF-8 hex digests, opened in
// create-if-missing mode at file permission 0600.
type Store struct {
	db        *bbolt.DB
	algorithm string
	blockSize int

	// cache memoises a digest computed during this run so a query
	// followed by an add for the same item doesn't rehash it (spec.md
	// §4.3: "a per-process memoisation map avoids recomputing a
	// digest when an item is both queried and added in the same
	// scan").
	cache map[string]string
}

// Open opens (creating if necessary) the store at path.
func Open(path, algorithm string, blockSize int) (*Store, error) {
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("incremental: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("incremental: init %s: %w", path, err)
	}

	return &Store{
		db:        db,
		algorithm: algorithm,
		blockSize: blockSize,
		cache:     make(map[string]string),
	}, nil
}

// Close flushes and closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Contains reports whether item was recorded on a prior run with a
// digest equal to its current one (spec.md §4.3: "item in cache ⇔ a
// prior run recorded a digest for str(item) equal to the item's
// current digest").
func (s *Store) Contains(item Item) (bool, error) {
	var stored string
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get([]byte(item.String()))
		if v != nil {
			found = true
			stored = string(v)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	current, err := s.digest(item)
	if err != nil {
		return false, err
	}
	return stored == current, nil
}

// Add stores item's current digest, overwriting any prior entry.
// Callers must only invoke this after every probe on item has
// succeeded (spec.md §3 invariant (d)).
func (s *Store) Add(item Item) error {
	digest, err := s.digest(item)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put([]byte(item.String()), []byte(digest))
	})
	// The memoised digest has served its query/add pair; drop it so a
	// later lookup of the same path hashes the content as it is then.
	delete(s.cache, item.String())
	return err
}

// digest computes (or returns the per-process memoised) current
// digest for item, per the configured algorithm.
func (s *Store) digest(item Item) (string, error) {
	if d, ok := s.cache[item.String()]; ok {
		return d, nil
	}

	var d string
	if s.algorithm == AlgorithmMtime {
		d = fmt.Sprintf("%d", item.ModTime().Unix())
	} else {
		method, err := checksum.New(s.algorithm)
		if err != nil {
			return "", err
		}
		rc, err := item.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		buf := make([]byte, s.blockSize)
		for {
			n, readErr := rc.Read(buf)
			if n > 0 {
				method.Write(buf[:n])
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				return "", readErr
			}
		}
		d = method.HexSum()
	}

	s.cache[item.String()] = d
	return d, nil
}
