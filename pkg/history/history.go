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

package history

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"jinr.ru/greenlab/go-hrm/pkg/hrm"
	"jinr.ru/greenlab/go-hrm/pkg/log"
)

const (
	DefaultCapacity = 3600
	DefaultHorizon  = 24 * time.Hour
	maxLineSize     = 1048576
)

// History is a bounded FIFO of samples kept in arrival order.
// The backing array is a ring: head is the index of the oldest sample.
type History struct {
	mu   sync.RWMutex
	buf  []hrm.Sample
	head int
	size int
	now  func() time.Time
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		buf: make([]hrm.Sample, capacity),
		now: time.Now,
	}
}

// Append adds s to the tail evicting the oldest sample at capacity
func (h *History) Append(s hrm.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.append(s)
}

func (h *History) append(s hrm.Sample) {
	capacity := len(h.buf)
	if h.size == capacity {
		h.buf[h.head] = s
		h.head = (h.head + 1) % capacity
		return
	}
	h.buf[(h.head+h.size)%capacity] = s
	h.size++
}

// MarkDiscontinuity appends a NaN rate sample stamped now
func (h *History) MarkDiscontinuity() hrm.Sample {
	gap := hrm.Discontinuity(h.now())
	h.Append(gap)
	return gap
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Cap() int {
	return len(h.buf)
}

// Last returns the most recent sample
func (h *History) Last() (hrm.Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return hrm.Sample{}, false
	}
	return h.buf[(h.head+h.size-1)%len(h.buf)], true
}

// Snapshot returns a copy of the current contents oldest first
func (h *History) Snapshot() []hrm.Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot()
}

func (h *History) snapshot() []hrm.Sample {
	result := make([]hrm.Sample, h.size)
	for i := 0; i < h.size; i++ {
		result[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return result
}

// Since returns samples with Time >= since
func (h *History) Since(since int64) []hrm.Sample {
	var result []hrm.Sample
	for _, s := range h.Snapshot() {
		if s.Time >= since {
			result = append(result, s)
		}
	}
	return result
}

// Load appends persisted samples newer than now - horizon in file order.
// On error the history is left unchanged.
func (h *History) Load(r io.Reader, horizon time.Duration) error {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	cutoff := h.now().Add(-horizon).UnixNano()
	capacity := h.Cap()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), maxLineSize)

	var pending []hrm.Sample
	loaded, skipped, lineNum := 0, 0, 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s := hrm.Sample{}
		if err := s.UnmarshalLine(line); err != nil {
			return ErrLoad{Line: lineNum, What: err.Error()}
		}
		if s.Time < cutoff {
			skipped++
			continue
		}
		pending = append(pending, s)
		loaded++
		// only the newest capacity samples can survive eviction
		if len(pending) >= 2*capacity {
			pending = append(pending[:0:0], pending[len(pending)-capacity:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return ErrLoad{Line: lineNum, What: err.Error()}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range pending {
		h.append(s)
	}
	log.Debug("Loaded history: loaded: %d skipped: %d retained: %d", loaded, skipped, h.size)
	return nil
}

// LoadFile is Load from a file, a missing file leaves the history untouched
func (h *History) LoadFile(path string, horizon time.Duration) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Info("History file not found, starting empty: %s", path)
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()
	if err := h.Load(file, horizon); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.Info("History loaded: path: %s samples: %d", path, h.Len())
	return nil
}

// Save writes every retained sample one per line oldest first
func (h *History) Save(w io.Writer) error {
	samples := h.Snapshot()
	bw := bufio.NewWriter(w)
	for _, s := range samples {
		line, err := s.MarshalLine()
		if err != nil {
			return err
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveFile rewrites the file at path with the whole history
func (h *History) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := h.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	log.Info("History saved: path: %s samples: %d", path, h.Len())
	return nil
}
