/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package session

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-hrm/pkg/log"
)

const (
	BucketName  = "sessions"
	OpenTimeout = time.Second
)

// Record describes one sensor connection
type Record struct {
	ID           string     `json:"id"`
	Device       string     `json:"device"`
	Start        time.Time  `json:"start"`
	End          *time.Time `json:"end,omitempty"`
	Frames       uint64     `json:"frames"`
	DecodeErrors uint64     `json:"decodeErrors"`
}

func (r *Record) key() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(r.Start.UnixNano()))
	return b
}

// State is the session journal database
type State struct {
	DB *bbolt.DB
}

func Open(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &State{DB: db}, nil
}

// Close ...
func (s *State) Close() error {
	return s.DB.Close()
}

// Begin records a new session for device
func (s *State) Begin(device string) (*Record, error) {
	rec := &Record{
		ID:     uuid.NewString(),
		Device: device,
		Start:  time.Now().UTC(),
	}
	log.Debug("Beginning session: id: %s device: %s", rec.ID, device)
	if err := s.put(rec, false); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update stores the counters of an existing session
func (s *State) Update(rec *Record) error {
	return s.put(rec, true)
}

// Finish stamps the end of the session
func (s *State) Finish(rec *Record) error {
	end := time.Now().UTC()
	rec.End = &end
	log.Debug("Finishing session: id: %s frames: %d decode errors: %d", rec.ID, rec.Frames, rec.DecodeErrors)
	return s.put(rec, true)
}

func (s *State) put(rec *Record, mustExist bool) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if mustExist && b.Get(rec.key()) == nil {
			return ErrSessionNotFound{ID: rec.ID}
		}
		data, err := yaml.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(rec.key(), data)
	})
}

// List returns all sessions oldest first
func (s *State) List() ([]*Record, error) {
	var records []*Record
	err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketName)).ForEach(func(_, v []byte) error {
			rec := &Record{}
			if err := yaml.Unmarshal(v, rec); err != nil {
				log.Error("Error while unmarshalling session record: %s", err)
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
