package blobs

import (
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
)

type blob struct {
	mediaType string
	data      []byte
}

// Store keeps transient binary content in memory under blob:<uuid> handles.
// It replaces the object URLs a browser would mint for live previews.
type Store struct {
	mu     sync.RWMutex
	blobs  map[string]blob
	logger arbor.ILogger
}

var _ interfaces.BlobStore = (*Store)(nil)

// NewStore creates an empty blob store
func NewStore(logger arbor.ILogger) *Store {
	return &Store{
		blobs:  make(map[string]blob),
		logger: logger,
	}
}

// Put stores data and returns its handle
func (s *Store) Put(mediaType string, data []byte) string {
	ref := common.NewBlobRef()

	s.mu.Lock()
	s.blobs[ref] = blob{mediaType: mediaType, data: data}
	s.mu.Unlock()

	s.logger.Debug().Str("ref", ref).Int("bytes", len(data)).Msg("Blob registered")
	return ref
}

// Get returns the content behind a handle
func (s *Store) Get(ref string) (string, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[ref]
	if !ok {
		return "", nil, false
	}
	return b.mediaType, b.data, true
}

// Release drops a handle. Unknown or empty handles are ignored.
func (s *Store) Release(ref string) {
	if ref == "" {
		return
	}

	s.mu.Lock()
	_, ok := s.blobs[ref]
	delete(s.blobs, ref)
	s.mu.Unlock()

	if ok {
		s.logger.Debug().Str("ref", ref).Msg("Blob released")
	}
}

// ReleaseAll drops every handle
func (s *Store) ReleaseAll() {
	s.mu.Lock()
	n := len(s.blobs)
	s.blobs = make(map[string]blob)
	s.mu.Unlock()

	if n > 0 {
		s.logger.Debug().Int("count", n).Msg("All blobs released")
	}
}

// Len returns the number of live handles
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
