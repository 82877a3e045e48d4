package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil session service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSessionService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{Session: &mockSessionService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, DefaultAnswerTimeout, server.answerTimeout)
	})
}

func TestServer_SetAnswerTimeout(t *testing.T) {
	server, err := NewServer(&Ports{Session: &mockSessionService{}})
	require.NoError(t, err)

	server.SetAnswerTimeout(5 * time.Second)
	assert.Equal(t, 5*time.Second, server.answerTimeout)

	server.SetAnswerTimeout(0)
	assert.Equal(t, 5*time.Second, server.answerTimeout)
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil session service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingSessionService)
	})

	t.Run("session service is valid", func(t *testing.T) {
		ports := &Ports{Session: &mockSessionService{}}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}
