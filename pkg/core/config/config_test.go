/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, time.Duration(0), cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.ResponseTimeout)
	assert.Equal(t, uint(100), cfg.EventBufferSize)
	assert.True(t, cfg.FailFast)
}

func TestFromReader(t *testing.T) {
	yml := `
eventService:
  connectTimeout: 10s
  readTimeout: 1m
  eventBufferSize: 250
  keepAliveTime: 30s
  failFast: false
`
	cfg, err := FromReader(strings.NewReader(yml), "yaml")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, time.Minute, cfg.ReadTimeout)
	assert.Equal(t, uint(250), cfg.EventBufferSize)
	assert.Equal(t, 30*time.Second, cfg.KeepAliveParams().Time)
	assert.False(t, cfg.FailFast)

	// Unspecified keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.ResponseTimeout)
}

func TestFromReaderNumericDurations(t *testing.T) {
	// Numeric durations are interpreted as milliseconds
	yml := `
eventService:
  connectTimeout: 3000
`
	cfg, err := FromReader(strings.NewReader(yml), "yaml")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
}

func TestFromReaderNoSection(t *testing.T) {
	cfg, err := FromReader(strings.NewReader("other: {}"), "yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromFileNotFound(t *testing.T) {
	_, err := FromFile("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
