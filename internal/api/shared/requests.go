package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Request decoding errors.
var (
	ErrEmptyBody    = errors.New("request body is required")
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrBodyTooLarge = errors.New("request body too large")
)

// DecodeJSON decodes the request body into v. It returns ErrEmptyBody for a
// missing or blank body, ErrBodyTooLarge when a MaxBytesReader limit was hit
// and ErrInvalidJSON for anything that is not a single JSON value.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}

	// Trailing data after the first value is not a valid payload
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return ErrInvalidJSON
		}
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return ErrBodyTooLarge
	case errors.Is(err, io.EOF):
		return ErrEmptyBody
	default:
		return errors.Join(ErrInvalidJSON, err)
	}
}
