package client

import (
	"encoding/json"
	nethttp "net/http"
)

// UnknownErrorCode is the error code synthesized when a non-2xx response
// body does not parse as the error envelope.
const UnknownErrorCode = "UNKNOWN_ERROR"

// ErrorEnvelope is the wire shape the API uses for failure responses.
type ErrorEnvelope struct {
	Error     string        `json:"error"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Path      string        `json:"path,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// ErrorDetail describes a single field-level problem inside an envelope.
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// translateAPIError converts a non-2xx response into an API error. Bodies
// that do not parse as the envelope synthesize an UNKNOWN_ERROR with the
// HTTP status text; the details array reduces to a field->message map
// where the first message per field wins.
func translateAPIError(status int, body []byte) ClientError {
	var env ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || (env.Error == "" && env.Message == "") {
		return NewAPIError(status, UnknownErrorCode, statusMessage(status), nil, "")
	}

	var fields map[string]string
	for _, d := range env.Details {
		if d.Field == "" {
			continue
		}
		if fields == nil {
			fields = make(map[string]string)
		}
		if _, seen := fields[d.Field]; !seen {
			fields[d.Field] = d.Message
		}
	}

	code := env.Error
	if code == "" {
		code = UnknownErrorCode
	}
	message := env.Message
	if message == "" {
		message = statusMessage(status)
	}
	return NewAPIError(status, code, message, fields, env.RequestID)
}

func statusMessage(status int) string {
	if text := nethttp.StatusText(status); text != "" {
		return text
	}
	return "request failed"
}
