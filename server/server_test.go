package server_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lAndbz/opcua-processor/server"
)

func TestInMemoryChannelIDsAreUniqueAndMonotonic(t *testing.T) {
	s := server.NewInMemory()
	a := s.GetNewChannelID()
	b := s.GetNewChannelID()
	assert.NotEqual(t, a, b)
	assert.Greater(t, b, a)
}

func TestInMemoryCreateSessionReturnsUsableFacade(t *testing.T) {
	s := server.NewInMemory()
	facade, err := s.CreateSession("test-conn")
	require.NoError(t, err)
	require.NotNil(t, facade)

	assert.NoError(t, facade.CloseSession(false))
}
