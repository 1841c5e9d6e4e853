package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"conflict", Conflict("username already exists"), ErrConflict},
		{"unauthorized", Unauthorized("bad token"), ErrUnauthorized},
		{"not found", NotFound("note not found"), ErrNotFound},
		{"forbidden", Forbidden("not yours"), ErrForbidden},
		{"validation", Validation("title is required"), ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
			assert.NotErrorIs(t, tt.err, errors.New("other"))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "note not found", Message(fmt.Errorf("wrap: %w", NotFound("note not found")), "x"))
	assert.Equal(t, "fallback", Message(errors.New("db down"), "fallback"))
	assert.Equal(t, "forbidden", (&Error{Kind: ErrForbidden}).Error())
}

func TestValidationErrorListsFields(t *testing.T) {
	err := Validation("title is required", "content is required")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 2)
	assert.Contains(t, err.Error(), "title is required; content is required")
}
