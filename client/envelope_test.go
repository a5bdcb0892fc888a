package client

import (
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateAPIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
		wantFields  map[string]string
		wantReqID   string
	}{
		{
			name:        "full envelope",
			status:      422,
			body:        `{"error":"VALIDATION_FAILED","message":"invalid payload","request_id":"req-42","details":[{"field":"email","message":"must be valid"},{"field":"name","message":"is required"}]}`,
			wantCode:    "VALIDATION_FAILED",
			wantMessage: "invalid payload",
			wantFields:  map[string]string{"email": "must be valid", "name": "is required"},
			wantReqID:   "req-42",
		},
		{
			name:        "first message per field wins",
			status:      400,
			body:        `{"error":"BAD_REQUEST","message":"boom","details":[{"field":"code","message":"too short"},{"field":"code","message":"already taken"}]}`,
			wantCode:    "BAD_REQUEST",
			wantMessage: "boom",
			wantFields:  map[string]string{"code": "too short"},
		},
		{
			name:        "details without field are skipped",
			status:      409,
			body:        `{"error":"CONFLICT","message":"duplicate","details":[{"message":"global problem"}]}`,
			wantCode:    "CONFLICT",
			wantMessage: "duplicate",
		},
		{
			name:        "non-json body",
			status:      502,
			body:        "<html>Bad Gateway</html>",
			wantCode:    UnknownErrorCode,
			wantMessage: "Bad Gateway",
		},
		{
			name:        "empty body",
			status:      500,
			body:        "",
			wantCode:    UnknownErrorCode,
			wantMessage: "Internal Server Error",
		},
		{
			name:        "empty envelope",
			status:      404,
			body:        `{}`,
			wantCode:    UnknownErrorCode,
			wantMessage: "Not Found",
		},
		{
			name:        "message without code",
			status:      403,
			body:        `{"message":"tenant suspended"}`,
			wantCode:    UnknownErrorCode,
			wantMessage: "tenant suspended",
		},
		{
			name:        "unknown status text",
			status:      599,
			body:        "",
			wantCode:    UnknownErrorCode,
			wantMessage: "request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateAPIError(tt.status, []byte(tt.body))
			assert.Equal(t, APIError, err.Type())
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Equal(t, tt.wantCode, ErrorCode(err))
			assert.Equal(t, tt.wantMessage, ErrorMessage(err))
			assert.Equal(t, tt.wantFields, FieldErrors(err))
			assert.Equal(t, tt.wantReqID, RequestID(err))
		})
	}
}

func jsonHeader() nethttp.Header {
	h := nethttp.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	return h
}

func TestResultDecode(t *testing.T) {
	res := newResult(200, jsonHeader(), []byte(`{"id":"c1","name":"Acme"}`))

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, res.Decode(&out))
	assert.Equal(t, "c1", out.ID)
	assert.Equal(t, "Acme", out.Name)
}

func TestResultDecodeNonJSON(t *testing.T) {
	h := nethttp.Header{}
	h.Set("Content-Type", "text/plain")
	res := newResult(200, h, []byte("pong"))

	var out map[string]any
	require.NoError(t, res.Decode(&out))
	assert.Nil(t, out, "non-JSON responses leave the target untouched")
	assert.Equal(t, []byte("pong"), res.Bytes())
}

func TestResultDecodeEmptyBody(t *testing.T) {
	res := newResult(204, jsonHeader(), nil)

	out := map[string]any{"existing": true}
	require.NoError(t, res.Decode(&out))
	assert.Equal(t, map[string]any{"existing": true}, out)
}

func TestResultDecodeMalformed(t *testing.T) {
	res := newResult(200, jsonHeader(), []byte(`{"id":`))

	var out map[string]any
	err := res.Decode(&out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestResultDecodeItems(t *testing.T) {
	type item struct {
		ID string `json:"id"`
	}

	tests := []struct {
		name    string
		body    string
		want    []item
		wantErr bool
	}{
		{
			name: "bare array",
			body: `[{"id":"a"},{"id":"b"}]`,
			want: []item{{ID: "a"}, {ID: "b"}},
		},
		{
			name: "items wrapper",
			body: `{"items":[{"id":"a"}],"total":1}`,
			want: []item{{ID: "a"}},
		},
		{
			name: "leading whitespace array",
			body: "\n  [{\"id\":\"a\"}]",
			want: []item{{ID: "a"}},
		},
		{
			name:    "object without items",
			body:    `{"total":0}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newResult(200, jsonHeader(), []byte(tt.body))
			var got []item
			err := res.DecodeItems(&got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsJSONContentType(t *testing.T) {
	assert.True(t, isJSONContentType("application/json"))
	assert.True(t, isJSONContentType("application/json; charset=utf-8"))
	assert.True(t, isJSONContentType("application/problem+json"))
	assert.False(t, isJSONContentType("text/html"))
	assert.False(t, isJSONContentType(""))
	assert.False(t, isJSONContentType("application/octet-stream"))
}
