package shared

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		requestBody string
		wantErr     error
	}{
		{name: "valid json", requestBody: `{"name": "test", "age": 30}`},
		{name: "unknown fields are ignored", requestBody: `{"name": "test", "age": 30, "extra": true}`},
		{name: "invalid json", requestBody: `{"name": "test", "age": 30,}`, wantErr: ErrInvalidJSON},
		{name: "trailing value", requestBody: `{"name": "test"} {"name": "again"}`, wantErr: ErrInvalidJSON},
		{name: "truncated", requestBody: `{"name": "te`, wantErr: ErrInvalidJSON},
		{name: "empty body", requestBody: "", wantErr: ErrEmptyBody},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tc.requestBody))

			var target payload
			err := DecodeJSON(req, &target)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", target.Name)
			assert.Equal(t, 30, target.Age)
		})
	}
}

func TestDecodeJSONNoBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Body = nil

	assert.ErrorIs(t, DecodeJSON(req, &payload{}), ErrEmptyBody)
}

func TestDecodeJSONTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name":"`+strings.Repeat("x", 100)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 10)

	assert.ErrorIs(t, DecodeJSON(req, &payload{}), ErrBodyTooLarge)
}

// errorReader fails every read
type errorReader struct{}

func (errorReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestDecodeJSONWithReadError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", errorReader{})

	assert.ErrorIs(t, DecodeJSON(req, &payload{}), ErrInvalidJSON)
}
