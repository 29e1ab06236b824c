package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryInt64List(t *testing.T) {
	t.Run("absent parameter", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/registrations", nil)
		vals, err := ParseQueryInt64List(r, "stamm")
		require.NoError(t, err)
		assert.Nil(t, vals)
	})

	t.Run("repeated keys", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/registrations?stamm=5&stamm=6", nil)
		vals, err := ParseQueryInt64List(r, "stamm")
		require.NoError(t, err)
		assert.Equal(t, []int64{5, 6}, vals)
	})

	t.Run("comma separated", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/registrations?ring=3,4", nil)
		vals, err := ParseQueryInt64List(r, "ring")
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 4}, vals)
	})

	t.Run("mixed with blanks", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/registrations?bund=2,&bund=7", nil)
		vals, err := ParseQueryInt64List(r, "bund")
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 7}, vals)
	})

	t.Run("non-numeric value", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/registrations?stamm=abc", nil)
		_, err := ParseQueryInt64List(r, "stamm")
		assert.Error(t, err)
	})
}

func TestParseQueryBool(t *testing.T) {
	r := httptest.NewRequest("GET", "/events?confirmed=true", nil)

	val, err := ParseQueryBool(r, "confirmed", false)
	require.NoError(t, err)
	assert.True(t, val)

	val, err = ParseQueryBool(r, "missing", true)
	require.NoError(t, err)
	assert.True(t, val)
}

func TestWriteErrorMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteForbidden(w, "insufficient permissions")

	assert.Equal(t, 403, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"insufficient permissions"}`, w.Body.String())
}
