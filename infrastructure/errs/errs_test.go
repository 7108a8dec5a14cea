package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	unknown := errors.New("unknown sku")
	err := E("ledger.Issue", NotFound, unknown)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, unknown))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, "ledger.Issue", Op(err))
	assert.Equal(t, "unknown sku", Message(err))
	assert.Equal(t, "ledger.Issue: unknown sku", err.Error())
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := Errorf("catalog.CreateSKU", Conflict, "sku code %q already exists", "WID")
	wrapped := fmt.Errorf("handler: %w", inner)

	assert.Equal(t, Conflict, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrConflict))

	rewrapped := E("http.createSKU", Other, inner)
	assert.Equal(t, Conflict, KindOf(rewrapped))
	assert.Equal(t, `sku code "WID" already exists`, Message(rewrapped))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Other, KindOf(errors.New("boom")))
	assert.Equal(t, Other, KindOf(nil))
	assert.Equal(t, "", Op(errors.New("boom")))
}

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		InvalidInput: http.StatusBadRequest,
		Forbidden:    http.StatusForbidden,
		NotFound:     http.StatusNotFound,
		Conflict:     http.StatusConflict,
		Unavailable:  http.StatusServiceUnavailable,
		Other:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := E("catalog.DeleteSKU", Forbidden, nil)
	assert.Equal(t, "catalog.DeleteSKU: forbidden", err.Error())
	assert.Equal(t, "forbidden", Message(err))
	assert.True(t, errors.Is(err, ErrForbidden))
}
