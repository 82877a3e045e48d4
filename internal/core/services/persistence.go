package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

var _ driving.SessionReader = (*PersistentStore)(nil)

// storeTimeout bounds a single durable read or write.
const storeTimeout = 5 * time.Second

// PersistentStore is the durable mirror of session state.
// It never returns errors: failures are logged and reads treat them as absent.
type PersistentStore struct {
	kv driven.KeyValueStore
}

// NewPersistentStore creates a persistent store over kv.
func NewPersistentStore(kv driven.KeyValueStore) *PersistentStore {
	return &PersistentStore{kv: kv}
}

// Load returns the value for key, or false when absent or unreadable.
func (p *PersistentStore) Load(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	val, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		logger.Warn("load %s: %v", key, err)
		return "", false
	}
	return val, ok
}

// Save writes value under key.
func (p *PersistentStore) Save(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := p.kv.Set(ctx, key, value); err != nil {
		logger.Warn("save %s: %v", key, err)
	}
}

// Clear removes keys.
func (p *PersistentStore) Clear(keys ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := p.kv.Delete(ctx, keys...); err != nil {
		logger.Warn("clear %v: %v", keys, err)
	}
}

// LoadIdentity returns the persisted owner identity.
func (p *PersistentStore) LoadIdentity() string {
	val, _ := p.Load(domain.KeyIdentity)
	return val
}

// SaveIdentity persists the owner identity.
func (p *PersistentStore) SaveIdentity(identity string) {
	p.Save(domain.KeyIdentity, identity)
}

// LoadSession reads the persisted session, or nil when none exists.
// A session whose stored fields break the result handle invariant is
// repaired: a ready stage without handle gets the derived handle and a
// handle before ready is dropped.
func (p *PersistentStore) LoadSession() *domain.Session {
	id, ok := p.Load(domain.KeySessionID)
	if !ok || id == "" {
		return nil
	}

	s := &domain.Session{ID: id}
	if stage, ok := p.Load(domain.KeyPipelineStage); ok && stage != "" {
		s.Stage = domain.ParseStage(stage)
	}
	s.OwnerEmail, _ = p.Load(domain.KeyIdentity)
	if created, ok := p.Load(domain.KeyCreatedAt); ok {
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			s.CreatedAt = t
		}
	}

	handle, _ := p.Load(domain.KeyResultHandle)
	if s.Stage == domain.StageReady {
		s.MarkReady(handle)
	}
	return s
}

// SaveSession writes every session field.
func (p *PersistentStore) SaveSession(s *domain.Session) {
	p.Save(domain.KeySessionID, s.ID)
	p.SaveStage(s.Stage)
	if !s.CreatedAt.IsZero() {
		p.Save(domain.KeyCreatedAt, s.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	if s.ResultHandle != "" {
		p.Save(domain.KeyResultHandle, s.ResultHandle)
	} else {
		p.Clear(domain.KeyResultHandle)
	}
}

// SaveStage writes the pipeline stage alone.
func (p *PersistentStore) SaveStage(stage domain.PipelineStage) {
	if stage == domain.StageNone {
		p.Clear(domain.KeyPipelineStage)
		return
	}
	p.Save(domain.KeyPipelineStage, stage.String())
}

// LoadMessages reads the persisted conversation.
func (p *PersistentStore) LoadMessages() []domain.Message {
	raw, ok := p.Load(domain.KeyMessageLog)
	if !ok || raw == "" {
		return nil
	}

	var items []domain.ConversationItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn("decode %s: %v", domain.KeyMessageLog, err)
		return nil
	}
	return domain.Messages(items)
}

// SaveMessages writes the full conversation.
func (p *PersistentStore) SaveMessages(msgs []domain.Message) {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		logger.Warn("encode %s: %v", domain.KeyMessageLog, err)
		return
	}
	p.Save(domain.KeyMessageLog, string(data))
}

// SaveSummary writes the passthrough fields of a resumed session.
func (p *PersistentStore) SaveSummary(s *domain.SessionSummary) {
	p.Save(domain.KeySummaryFilename, s.Filename)
	p.Save(domain.KeySummaryCreatedAt, s.CreatedAt)
	p.Save(domain.KeySummaryText, s.Summary)
	if len(s.ScoreFeedback) > 0 {
		p.Save(domain.KeyScoreFeedback, string(s.ScoreFeedback))
	}
}

// LoadSummary reads the passthrough fields, or nil when none were saved.
func (p *PersistentStore) LoadSummary() *domain.SessionSummary {
	filename, ok := p.Load(domain.KeySummaryFilename)
	if !ok {
		return nil
	}
	s := &domain.SessionSummary{Filename: filename}
	s.SessionID, _ = p.Load(domain.KeySessionID)
	s.CreatedAt, _ = p.Load(domain.KeySummaryCreatedAt)
	s.Summary, _ = p.Load(domain.KeySummaryText)
	if fb, ok := p.Load(domain.KeyScoreFeedback); ok && json.Valid([]byte(fb)) {
		s.ScoreFeedback = json.RawMessage(fb)
	}
	return s
}

// ClearSession removes every session key but keeps the identity.
func (p *PersistentStore) ClearSession() {
	p.Clear(domain.SessionKeys()...)
}

// ClearAll removes every session key and the identity.
func (p *PersistentStore) ClearAll() {
	p.Clear(append(domain.SessionKeys(), domain.KeyIdentity)...)
}
