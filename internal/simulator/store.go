package simulator

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/simulator/extract"
)

// minWords is the least extracted text that can be discussed.
const minWords = 3

// turn is one exchanged message in the server's conversation shape.
type turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// record is one submitted document.
type record struct {
	ID         string
	Email      string
	Filename   string
	CreatedAt  time.Time
	UploadedAt time.Time
	Size       int
	Turns      []turn

	// Extracted is the readable content; ExtractErr is set when extraction failed.
	Extracted  extract.Result
	ExtractErr error
	Chunks     []extract.Chunk
}

// uploaded reports whether the document body has arrived.
func (r *record) uploaded() bool {
	return !r.UploadedAt.IsZero()
}

// resultHandle addresses the ingestion output.
func (r *record) resultHandle() string {
	return "result-" + r.ID
}

// stage derives the pipeline stage from the time elapsed since upload.
func (r *record) stage(now time.Time, step time.Duration) domain.PipelineStage {
	if !r.uploaded() {
		return domain.StageSubmitted
	}

	steps := 0
	if step > 0 {
		steps = int(now.Sub(r.UploadedAt) / step)
	} else {
		steps = 3
	}

	switch {
	case steps < 1:
		return domain.StageContentFetched
	case r.ExtractErr != nil || r.Extracted.Text == "":
		return domain.StageNormalizationFailed
	case steps < 2:
		return domain.StageContentNormalized
	case r.Extracted.Words() < minWords:
		return domain.StageEnrichmentInsufficient
	case steps < 3:
		return domain.StageEnrichmentRunning
	default:
		return domain.StageReady
	}
}

// summary describes the record for the prior-session check.
func (r *record) summary() string {
	preview := previewOf(r.Extracted.Text)
	if preview == "" {
		return "A document named " + r.Filename + "."
	}
	return r.Extracted.Title + ": " + preview
}

// store holds records with expiry.
type store struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func newStore(ttl time.Duration) *store {
	return &store{cache: cache.New(ttl, ttl/2)}
}

// create registers a new document for email.
func (s *store) create(email, filename string, now time.Time) *record {
	r := &record{
		ID:        uuid.NewString(),
		Email:     email,
		Filename:  filename,
		CreatedAt: now,
	}
	s.cache.Set(r.ID, r, cache.DefaultExpiration)
	return r
}

// get returns a copy of the record with id.
func (s *store) get(id string) (record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, found := s.cache.Get(id)
	if !found {
		return record{}, false
	}
	r := *x.(*record)
	r.Turns = append([]turn(nil), r.Turns...)
	return r, true
}

// update applies fn to the record with id.
func (s *store) update(id string, fn func(*record)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, found := s.cache.Get(id)
	if !found {
		return false
	}
	fn(x.(*record))
	return true
}

// byHandle finds the record a result handle addresses.
func (s *store) byHandle(handle string) (record, bool) {
	id, ok := strings.CutPrefix(handle, "result-")
	if !ok {
		return record{}, false
	}
	return s.get(id)
}

// ready returns the ready records owned by email, newest first.
func (s *store) ready(email string, now time.Time, step time.Duration) []record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []record
	for _, item := range s.cache.Items() {
		r := item.Object.(*record)
		if !strings.EqualFold(r.Email, email) || r.stage(now, step) != domain.StageReady {
			continue
		}
		c := *r
		c.Turns = append([]turn(nil), r.Turns...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
