package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRequest_Validate(t *testing.T) {
	assert.NoError(t, LoginRequest{Username: "alice", Password: "secret"}.Validate())
	assert.ErrorIs(t, LoginRequest{Username: "  ", Password: "secret"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, LoginRequest{Username: "alice"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, RegisterRequest{Password: "secret"}.Validate(), ErrInvalidInput)
}

func TestJobInput_Validate(t *testing.T) {
	valid := JobInput{Title: "SRE", Company: "Acme", Description: "Keep it up", Requirements: "go"}
	require.NoError(t, valid.Validate())

	err := JobInput{Title: "SRE", Description: " "}.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "missing company, description, requirements")
}

func TestAskRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AskRequest
		wantErr bool
	}{
		{"valid", AskRequest{Query: "go developers", K: DefaultAskK}, false},
		{"max k", AskRequest{Query: "go", K: MaxAskK}, false},
		{"blank query", AskRequest{Query: "   ", K: 5}, true},
		{"zero k", AskRequest{Query: "go", K: 0}, true},
		{"k too large", AskRequest{Query: "go", K: MaxAskK + 1}, true},
		{"query at limit", AskRequest{Query: strings.Repeat("é", MaxQueryLength), K: 1}, false},
		{"query too long", AskRequest{Query: strings.Repeat("a", MaxQueryLength+1), K: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMatchRequest_Validate(t *testing.T) {
	assert.NoError(t, MatchRequest{TopN: 1}.Validate())
	assert.NoError(t, MatchRequest{TopN: MaxTopN}.Validate())
	assert.ErrorIs(t, MatchRequest{TopN: 0}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, MatchRequest{TopN: MaxTopN + 1}.Validate(), ErrInvalidInput)
}
