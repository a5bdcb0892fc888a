package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	nethttp "net/http"
	"strings"
)

// Result is a successful API response decoded on demand.
type Result struct {
	// Status is the HTTP status code (always 2xx).
	Status int
	// Header holds the raw response headers.
	Header nethttp.Header

	body []byte
	json bool
}

func newResult(status int, header nethttp.Header, body []byte) *Result {
	return &Result{
		Status: status,
		Header: header,
		body:   body,
		json:   isJSONContentType(header.Get("Content-Type")),
	}
}

// Bytes returns the raw response body.
func (r *Result) Bytes() []byte {
	return r.body
}

// Decode unmarshals the JSON payload into v. Responses without a JSON
// content type, or with an empty body, leave v untouched: some endpoints
// intentionally return no body and callers must not fail on them.
func (r *Result) Decode(v any) error {
	if !r.json || len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DecodeItems unmarshals a collection payload into v, normalizing the two
// shapes the API uses: a bare JSON array, or an object wrapping the array
// under an "items" key.
func (r *Result) DecodeItems(v any) error {
	if !r.json || len(r.body) == 0 {
		return nil
	}
	trimmed := bytes.TrimLeft(r.body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, v); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	var wrapper struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(r.body, &wrapper); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if wrapper.Items == nil {
		return fmt.Errorf("decode response: no items array in payload")
	}
	if err := json.Unmarshal(wrapper.Items, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isJSONContentType reports whether the declared content type carries a
// JSON payload.
func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
