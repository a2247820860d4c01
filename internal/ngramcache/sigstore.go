package ngramcache

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"webcorpus-curator/internal/corpuserr"
)

const sigBucket = "minhash_signatures"

// SignatureStore persists MinHash signatures across NearDedup runs, keyed
// by document path. curator near-dedup uses a stored signature in place of
// the one it computes, but still reads and hashes every file in Phase A,
// since Phase C needs each file's n-gram set. Every stored signature is
// validated against numHashes on
// read: a length mismatch (typically caused by re-running with a changed
// numHashes configuration against a stale checkpoint database) is a fatal
// configuration error, not a recoverable per-document one.
type SignatureStore struct {
	db        *bolt.DB
	numHashes int
}

// OpenSignatureStore opens (or creates) a bbolt database at path for
// signature checkpoints, validated against numHashes.
func OpenSignatureStore(path string, numHashes int) (*SignatureStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open signature store %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sigBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create signature bucket: %w", err)
	}
	return &SignatureStore{db: db, numHashes: numHashes}, nil
}

// Get returns the checkpointed signature for path, if present. It returns
// a *corpuserr.ConfigError if a stored signature's length does not match
// the configured numHashes.
func (s *SignatureStore) Get(path string) ([]uint32, bool, error) {
	var sig []uint32
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sigBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(path))
		if v == nil {
			return nil
		}
		sig = decodeSignature(v)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if sig == nil {
		return nil, false, nil
	}
	if len(sig) != s.numHashes {
		return nil, false, &corpuserr.ConfigError{
			Reason: fmt.Sprintf("checkpointed signature for %s has %d hashes, configured numHashes is %d", path, len(sig), s.numHashes),
		}
	}
	return sig, true, nil
}

// Set stores sig as the checkpointed signature for path.
func (s *SignatureStore) Set(path string, sig []uint32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sigBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", sigBucket)
		}
		return b.Put([]byte(path), encodeSignature(sig))
	})
}

// Close closes the underlying database.
func (s *SignatureStore) Close() error {
	return s.db.Close()
}

func encodeSignature(sig []uint32) []byte {
	buf := make([]byte, 4*len(sig))
	for i, v := range sig {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func decodeSignature(data []byte) []uint32 {
	sig := make([]uint32, len(data)/4)
	for i := range sig {
		sig[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	return sig
}
