package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServeCmd_DefaultsTransportToStdio(t *testing.T) {
	cmd := newServeCmd()
	flag := cmd.Flags().Lookup("transport")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "stdio", flag.DefValue)
	}
}

func TestNewServeCmd_AcceptsAtMostOnePathArgument(t *testing.T) {
	cmd := newServeCmd()
	assert.Error(t, cmd.Args(cmd, []string{"one", "two"}))
	assert.NoError(t, cmd.Args(cmd, []string{"one"}))
	assert.NoError(t, cmd.Args(cmd, []string{}))
}
