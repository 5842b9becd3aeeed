package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInternal:      500,
		KindInvalid:       400,
		KindNotFound:      404,
		KindUnauthorized:  401,
		KindQuotaExceeded: 403,
		KindUpstream:      502,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("submit turn: %w", Upstream("AI provider is unavailable", cause))

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.True(t, Is(err, KindUpstream))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "AI provider is unavailable", PublicMessage(err))
}

func TestKindOf_Foreign(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.False(t, Is(nil, KindInternal))
	assert.Equal(t, "Internal server error", PublicMessage(err))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "not_found: Chat not found", NotFound("Chat not found").Error())
	assert.Equal(t, "internal: save: disk full", Internal("save", errors.New("disk full")).Error())
}
