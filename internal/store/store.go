package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"mirror/internal/types"
)

var (
	bucketAppState = []byte("app_state")
	bucketRecents  = []byte("recents")
	keyAppState    = []byte("state")
)

// Store persists UI preference state in bbolt. Session transcripts never
// pass through here.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAppState, bucketRecents} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) LoadAppState() (*types.AppState, error) {
	state := &types.AppState{}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAppState).Get(keyAppState)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) SaveAppState(state *types.AppState) error {
	if state == nil {
		return errors.New("state is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAppState).Put(keyAppState, data)
	})
}

// TouchRecent records that a session was opened now.
func (s *Store) TouchRecent(sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}
	entry := types.RecentSession{SessionID: sessionID, OpenedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecents).Put([]byte(sessionID), data)
	})
}

// Recents returns recently opened sessions, newest first.
func (s *Store) Recents(limit int) ([]types.RecentSession, error) {
	var recents []types.RecentSession
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecents).ForEach(func(_, data []byte) error {
			var entry types.RecentSession
			if err := json.Unmarshal(data, &entry); err != nil {
				return nil
			}
			recents = append(recents, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recents, func(i, j int) bool {
		return recents[i].OpenedAt.After(recents[j].OpenedAt)
	})
	if limit > 0 && len(recents) > limit {
		recents = recents[:limit]
	}
	return recents, nil
}
