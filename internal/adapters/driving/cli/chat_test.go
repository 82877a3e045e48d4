package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Cats sleep most of the day."), 0o600))
	return path
}

func TestChatCmd_Use(t *testing.T) {
	assert.Equal(t, "chat [file]", chatCmd.Use)
	assert.Contains(t, chatCmd.Long, "/reconnect")
}

func TestChatCmd_TooManyArgs(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, nil, "chat", "a.txt", "b.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg(s)")
}

func TestChatCmd_UploadAndAsk(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, strings.NewReader("What is it?\n"), "chat", writeDocument(t))

	require.NoError(t, err)
	assert.Contains(t, out, "Uploading notes.txt")
	assert.Contains(t, out, "Processing document...")
	assert.Contains(t, out, "Connected.")
	assert.Contains(t, out, "Hello! Ask me anything.")
	assert.Contains(t, out, "Answer: What is it?")
	assert.Equal(t, []string{
		"Start",
		"SetIdentity:ada@example.com",
		"Submit:notes.txt",
		"Ask:What is it?",
	}, session.Calls())
	assert.True(t, session.closed)
}

func TestChatCmd_NoDocument(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, nil, "chat")

	assert.ErrorIs(t, err, errNoDocument)
}

func TestChatCmd_MissingFile(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, nil, "chat", filepath.Join(t.TempDir(), "missing.pdf"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading document")
}

func TestChatCmd_PromptsForEmail(t *testing.T) {
	settings, session, cleanup := setupTestServices()
	defer cleanup()
	settings.settings.Identity = ""

	out, err := execute(t, strings.NewReader("not-an-email\nada@example.com\n"), "chat", writeDocument(t))

	require.NoError(t, err)
	assert.Contains(t, out, "Email address: ")
	assert.Contains(t, out, "not a valid email address")
	assert.Contains(t, session.Calls(), "SetIdentity:ada@example.com")
	assert.Contains(t, session.Calls(), "Submit:notes.txt")
}

func TestChatCmd_ResumePriorSession(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()
	session.prior = &domain.SessionSummary{
		SessionID: "old",
		Filename:  "report.pdf",
		CreatedAt: "2024-05-01T12:00:00Z",
		Summary:   "Quarterly numbers.",
	}

	out, err := execute(t, strings.NewReader("r\n"), "chat", writeDocument(t))

	require.NoError(t, err)
	assert.Contains(t, out, "You have a previous session.")
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "Connected.")
	assert.Contains(t, session.Calls(), "Resume")
	assert.NotContains(t, session.Calls(), "Proceed")
}

func TestChatCmd_UploadInsteadOfPrior(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()
	session.prior = &domain.SessionSummary{SessionID: "old", Filename: "report.pdf"}

	out, err := execute(t, strings.NewReader("u\n"), "chat", writeDocument(t))

	require.NoError(t, err)
	assert.Contains(t, out, "Processing document...")
	assert.Contains(t, session.Calls(), "Proceed")
}

func TestChatCmd_PriorUnanswered(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()
	session.prior = &domain.SessionSummary{SessionID: "old", Filename: "report.pdf"}

	_, err := execute(t, nil, "chat", writeDocument(t))

	assert.ErrorIs(t, err, errPriorUnanswered)
}

func TestChatCmd_IngestionFailure(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()
	session.failOn = domain.FailureContentUnreadable

	out, err := execute(t, nil, "chat", writeDocument(t))

	require.Error(t, err)
	assert.Contains(t, out, domain.FailureContentUnreadable.UserMessage())
}

func TestChatCmd_NotConnected(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()
	session.askErr = domain.ErrNotConnected

	out, err := execute(t, strings.NewReader("hello\n"), "chat", writeDocument(t))

	require.NoError(t, err)
	assert.Contains(t, out, "Not connected. Type /reconnect to try again.")
}

func TestChatCmd_Commands(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, strings.NewReader("/help\n/reconnect\n/restart\n"), "chat", writeDocument(t))

	require.NoError(t, err)
	assert.Contains(t, out, "Commands: /reconnect")
	assert.Contains(t, out, "Reconnecting...")
	assert.Contains(t, out, "Session cleared.")
	assert.Contains(t, session.Calls(), "Reconnect")
	assert.Contains(t, session.Calls(), "Restart")
}

func TestChatCmd_Quit(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, strings.NewReader("/quit\nnever sent\n"), "chat", writeDocument(t))

	require.NoError(t, err)
	assert.NotContains(t, session.Calls(), "Ask:never sent")
}

func TestChatCmd_ExistingSessionIgnoresFile(t *testing.T) {
	_, session, cleanup := setupTestServices()
	defer cleanup()
	session.snap.State = domain.StateChatting
	session.snap.Identity = "ada@example.com"
	session.snap.Connection = domain.ConnOpen

	out, err := execute(t, nil, "chat", writeDocument(t))

	require.NoError(t, err)
	assert.Contains(t, out, "A session is already in progress")
	assert.NotContains(t, session.Calls(), "Submit:notes.txt")
}
