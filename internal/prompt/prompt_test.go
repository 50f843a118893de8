package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var p Prompter = Defaults{}

	assert.False(t, p.Interactive())

	ok, err := p.Confirm("Use Docker?", true)
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := p.Input("Host", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", v)
}

func TestScripted(t *testing.T) {
	s := &Scripted{
		Confirms: map[string]bool{"Use Docker?": false},
		Inputs:   map[string]string{"Port": "6380"},
	}

	ok, err := s.Confirm("Use Docker?", true)
	require.NoError(t, err)
	assert.False(t, ok)

	port, err := s.Input("Port", "6379")
	require.NoError(t, err)
	assert.Equal(t, "6380", port)

	host, err := s.Password("Password", "generated")
	require.NoError(t, err)
	assert.Equal(t, "generated", host)

	assert.Equal(t, []string{"Use Docker?", "Port", "Password"}, s.Asked)
}

func TestScriptedError(t *testing.T) {
	s := &Scripted{Err: errors.New("interrupted")}

	ok, err := s.Confirm("Use Docker?", true)
	assert.Error(t, err)
	assert.True(t, ok)
}
