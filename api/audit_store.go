package api

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// auditRecord is one persisted audit-trail event. Records carry redacted
// session fragments only; no field of this struct may ever hold credential
// material, which is what keeps the trail safe to persist.
type auditRecord struct {
	Event      string `json:"event"`
	SessionID  string `json:"session_id,omitempty"`
	Entry      string `json:"entry,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RemoteAddr string `json:"remote_addr"`
	CreatedAt  string `json:"created_at"`
}

var auditBucket = []byte("audit")

// auditStore is an optional bbolt-backed audit trail. Sessions and secrets
// are never written here; the store exists so operators can review
// security-relevant events across restarts.
type auditStore struct {
	db *bolt.DB
}

func openAuditStore(path string) (*auditStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(auditBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit bucket: %w", err)
	}
	return &auditStore{db: db}, nil
}

func (s *auditStore) append(rec auditRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(auditBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// recent returns up to limit records, newest first.
func (s *auditStore) recent(limit int) ([]auditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	records := make([]auditRecord, 0, limit)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(auditBucket).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec auditRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *auditStore) Close() error {
	return s.db.Close()
}
