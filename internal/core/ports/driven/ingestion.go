package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// IngestionAPI is the request/response half of the backend.
type IngestionAPI interface {
	// CheckPriorSession reports previous sessions owned by identity.
	CheckPriorSession(ctx context.Context, identity string) (*domain.PriorSessions, error)

	// Submit registers a new document and returns where to upload it.
	Submit(ctx context.Context, filename, identity string) (*domain.SubmitTicket, error)

	// Upload sends the document body to the upload target.
	Upload(ctx context.Context, target string, content []byte, contentType string) error

	// PollStatus returns the current pipeline status of a session.
	PollStatus(ctx context.Context, sessionID string) (*domain.StatusReport, error)
}
