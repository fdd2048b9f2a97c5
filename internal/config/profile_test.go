// ABOUTME: Tests for connection profile validation
// ABOUTME: Covers issue ordering, token requirement and URL normalization

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_ValidateOK(t *testing.T) {
	p := DefaultProfile()
	p.BaseURL = "  HTTPS://gw.example.com/  "

	assert.NoError(t, p.Validate(true, "token"))
	assert.Equal(t, "HTTPS://gw.example.com", p.NormalizedBaseURL())
}

func TestProfile_ValidateIssueOrder(t *testing.T) {
	p := Profile{Model: "  ", DefaultSessionKey: ""}

	err := p.Validate(true, "   ")
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"Gateway URL is required.",
		"Gateway token is required.",
		"Default model cannot be empty.",
		"Default session key cannot be empty.",
	}, verr.Issues)
	assert.Equal(t, "Gateway URL is required.", verr.First())
	assert.Equal(t, "Gateway URL is required. (and 3 more)", verr.Error())
}

func TestProfile_ValidateScheme(t *testing.T) {
	p := DefaultProfile()
	p.BaseURL = "gw.example.com:18789"

	err := p.Validate(false, "")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Gateway URL must start with http:// or https://"}, verr.Issues)
	assert.Equal(t, "Gateway URL must start with http:// or https://", err.Error())
}

func TestProfile_TokenOnlyWhenRequired(t *testing.T) {
	p := DefaultProfile()
	p.BaseURL = "http://127.0.0.1:18789"

	assert.NoError(t, p.Validate(false, ""))
	assert.Error(t, p.Validate(true, ""))
}
