// Package capture holds the ordered list of captured frames. It is the only
// owner of capture records; callers always receive copies.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

var (
	// ErrIndexOutOfRange is returned when an index does not address a record
	ErrIndexOutOfRange = errors.New("capture index out of range")
	// ErrRecordChanged is returned when the record at an index is not the expected one
	ErrRecordChanged = errors.New("capture record changed")
)

// Record is one captured frame
type Record struct {
	ID           string            `json:"id"`
	CapturedAt   time.Time         `json:"capturedAt"`
	Original     []byte            `json:"-"`
	Cropped      []byte            `json:"-"`
	CropGeometry *types.SourceRect `json:"cropGeometry,omitempty"`
}

// IsCropped reports whether the record carries a confirmed crop
func (r Record) IsCropped() bool {
	return len(r.Cropped) > 0
}

// Current returns the cropped image when present, else the original
func (r Record) Current() []byte {
	if r.IsCropped() {
		return r.Cropped
	}
	return r.Original
}

// List is an ordered, mutex-guarded sequence of records
type List struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

// New creates an empty capture list
func New() *List {
	return &List{now: time.Now}
}

// Add appends a new record holding the encoded still and returns its index
func (l *List) Add(original []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, Record{
		ID:         uuid.NewString(),
		CapturedAt: l.now(),
		Original:   original,
	})
	return len(l.records) - 1
}

// Len returns the number of records
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Record returns a copy of the record at index
func (l *List) Record(index int) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.records) {
		return Record{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(l.records))
	}
	return copyRecord(l.records[index]), nil
}

// Records returns copies of all records in order
func (l *List) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[i] = copyRecord(r)
	}
	return out
}

// Images returns the cropped-or-original bytes of every record in order
func (l *List) Images() [][]byte {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([][]byte, len(l.records))
	for i, r := range l.records {
		out[i] = r.Current()
	}
	return out
}

// SetCroppedResult stores a confirmed crop on the record at index, provided
// that record still has recordID.
func (l *List) SetCroppedResult(index int, recordID string, cropped []byte, geometry types.SourceRect) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.records) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(l.records))
	}
	if l.records[index].ID != recordID {
		return fmt.Errorf("%w: index %d holds %s, want %s", ErrRecordChanged, index, l.records[index].ID, recordID)
	}
	g := geometry
	l.records[index].Cropped = cropped
	l.records[index].CropGeometry = &g
	return nil
}

// Remove deletes the record at index, keeping the relative order of the rest
func (l *List) Remove(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.records) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(l.records))
	}
	l.records = append(l.records[:index], l.records[index+1:]...)
	return nil
}

// Move swaps the record at index with its neighbour in direction (-1 up,
// +1 down). Moving past either end is a no-op and reports false.
func (l *List) Move(index, direction int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	target := index + direction
	if index < 0 || index >= len(l.records) || target < 0 || target >= len(l.records) {
		return false
	}
	l.records[index], l.records[target] = l.records[target], l.records[index]
	return true
}

// Clear removes every record
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}

func copyRecord(r Record) Record {
	if r.CropGeometry != nil {
		g := *r.CropGeometry
		r.CropGeometry = &g
	}
	return r
}
