package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// TestViewType_String tests the string form of every view.
func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewIdentity, "identity"},
		{ViewUpload, "upload"},
		{ViewPrior, "prior"},
		{ViewProgress, "progress"},
		{ViewChat, "chat"},
		{ViewFailed, "failed"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.String())
		})
	}
}

// TestViewFor tests mapping controller states onto screens.
func TestViewFor(t *testing.T) {
	tests := []struct {
		name string
		snap domain.SessionSnapshot
		want ViewType
	}{
		{"idle without identity", domain.SessionSnapshot{State: domain.StateIdle}, ViewIdentity},
		{"idle with identity", domain.SessionSnapshot{State: domain.StateIdle, Identity: "a@b.co"}, ViewUpload},
		{"awaiting", domain.SessionSnapshot{State: domain.StateAwaitingConfirmation}, ViewPrior},
		{"polling", domain.SessionSnapshot{State: domain.StatePollingPipeline}, ViewProgress},
		{"chat ready", domain.SessionSnapshot{State: domain.StateChatReady}, ViewChat},
		{"chatting", domain.SessionSnapshot{State: domain.StateChatting}, ViewChat},
		{"failed", domain.SessionSnapshot{State: domain.StateFailed}, ViewFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ViewFor(tt.snap))
		})
	}
}
