package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxBodySize is the maximum allowed request body size (1 MB).
const MaxBodySize = 1 << 20

// ReadBody reads the full request body, enforcing the size limit.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.New("request body is empty")
	}
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, MaxBodySize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("request body exceeds maximum size of %d bytes", MaxBodySize)
		}
		return nil, errors.New("failed to read request body")
	}
	if len(body) == 0 {
		return nil, errors.New("request body is empty")
	}
	return body, nil
}

// ParseObject unmarshals a JSON body into a key-to-raw-value map so the
// canonical field validator can inspect the keys before the payload is
// bound to a typed struct.
func ParseObject(body []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, friendlyJSONError(err)
	}
	return obj, nil
}

// Unmarshal binds a JSON body to dst, translating decode errors into
// user-friendly messages. Unknown fields are tolerated; only the legacy
// names in the canonical mapping table are rejected, and that happens
// earlier via ParseObject + the validator.
func Unmarshal(body []byte, dst interface{}) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return friendlyJSONError(err)
	}
	return nil
}

// DecodeJSON reads and decodes a JSON request body into dst in one step.
// Used by endpoints that have no canonical-field context (e.g. login).
func DecodeJSON(r *http.Request, dst interface{}) error {
	body, err := ReadBody(r)
	if err != nil {
		return err
	}
	return Unmarshal(body, dst)
}

// friendlyJSONError translates common JSON errors instead of leaking Go
// internals to clients.
func friendlyJSONError(err error) error {
	var syntaxErr *json.SyntaxError
	var unmarshalTypeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &unmarshalTypeErr):
		if unmarshalTypeErr.Field == "" {
			return errors.New("request body must be a JSON object")
		}
		return fmt.Errorf("invalid value for field %q: expected %s", unmarshalTypeErr.Field, unmarshalTypeErr.Type)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("request body is empty")
	case strings.Contains(err.Error(), "cannot unmarshal"):
		return errors.New("request body must be a JSON object")
	default:
		return errors.New("invalid JSON in request body")
	}
}
