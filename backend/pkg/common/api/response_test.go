package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusUnauthorized, "invalid_token", "Invalid or expired token", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{Code: "invalid_token", Message: "Invalid or expired token"}, body)
}

func TestWriteText(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteText(rec, http.StatusOK, "Asset with DealerID %s created successfully", "D1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Asset with DealerID D1 created successfully", rec.Body.String())
}

func TestWriteSuccessNil(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
