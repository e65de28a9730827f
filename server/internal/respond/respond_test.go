package respond_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maynagashev/gophchat/server/internal/respond"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.JSON(rec, http.StatusOK, []string{"c1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `["c1"]`, rec.Body.String())
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.Error(rec, http.StatusBadRequest, "плохо")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"плохо"}`, rec.Body.String())
}
