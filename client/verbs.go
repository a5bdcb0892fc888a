package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	nethttp "net/http"
)

// Get performs a GET request against the given path.
func (c *Client) Get(ctx context.Context, path string, opts ...Option) (*Result, error) {
	return c.doRequest(ctx, nethttp.MethodGet, path, nil, applyOptions(opts))
}

// Post performs a POST request with a JSON-encoded body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...Option) (*Result, error) {
	encoded, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	return c.doRequest(ctx, nethttp.MethodPost, path, encoded, applyOptions(opts))
}

// Patch performs a PATCH request with a JSON-encoded body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...Option) (*Result, error) {
	encoded, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	return c.doRequest(ctx, nethttp.MethodPatch, path, encoded, applyOptions(opts))
}

// Put performs a PUT request with a JSON-encoded body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...Option) (*Result, error) {
	encoded, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	return c.doRequest(ctx, nethttp.MethodPut, path, encoded, applyOptions(opts))
}

// Delete performs a DELETE request against the given path.
func (c *Client) Delete(ctx context.Context, path string, opts ...Option) (*Result, error) {
	return c.doRequest(ctx, nethttp.MethodDelete, path, nil, applyOptions(opts))
}

// File is one file part of a multipart upload.
type File struct {
	// Field is the form field name.
	Field string
	// Name is the file name reported to the server.
	Name string
	// Content supplies the file bytes.
	Content io.Reader
}

// Form is a multipart/form-data payload.
type Form struct {
	Fields map[string]string
	Files  []File
}

// Upload POSTs a multipart form. Auth and tenant header rules apply as
// usual, but the multipart writer owns the Content-Type.
func (c *Client) Upload(ctx context.Context, path string, form *Form, opts ...Option) (*Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if form != nil {
		for key, value := range form.Fields {
			if err := writer.WriteField(key, value); err != nil {
				return nil, fmt.Errorf("encode form field %q: %w", key, err)
			}
		}
		for _, f := range form.Files {
			part, err := writer.CreateFormFile(f.Field, f.Name)
			if err != nil {
				return nil, fmt.Errorf("encode form file %q: %w", f.Name, err)
			}
			if _, err := io.Copy(part, f.Content); err != nil {
				return nil, fmt.Errorf("read form file %q: %w", f.Name, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart form: %w", err)
	}

	ro := applyOptions(opts)
	ro.omitContentType = true
	if ro.headers == nil {
		ro.headers = make(map[string]string)
	}
	ro.headers[headerContentType] = writer.FormDataContentType()

	return c.doRequest(ctx, nethttp.MethodPost, path, buf.Bytes(), ro)
}

// Download holds a binary response.
type Download struct {
	Bytes       []byte
	ContentType string
	// Filename is parsed from Content-Disposition when present.
	Filename string
}

// Download GETs a binary payload, skipping JSON decoding. Auth and tenant
// rules apply as for any other request.
func (c *Client) Download(ctx context.Context, path string, opts ...Option) (*Download, error) {
	res, err := c.doRequest(ctx, nethttp.MethodGet, path, nil, applyOptions(opts))
	if err != nil {
		return nil, err
	}

	download := &Download{
		Bytes:       res.Bytes(),
		ContentType: res.Header.Get(headerContentType),
	}
	if cd := res.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			download.Filename = params["filename"]
		}
	}
	return download, nil
}

// encodeBody marshals a request body to JSON. Raw byte payloads pass
// through unencoded.
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return encoded, nil
	}
}
