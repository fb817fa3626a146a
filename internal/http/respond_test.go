package http

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRespondJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()

	// NaN has no JSON representation; the failure is logged, not panicked,
	// and the already-committed status is preserved.
	respondJSON(rec, http.StatusOK, math.NaN())

	assert.Equal(t, http.StatusOK, rec.Code)
}
