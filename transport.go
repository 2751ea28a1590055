package graphcache

import (
	"context"
	"net/http"
	"strings"
)

// Request asks the remote side for one entity with a field selection.
type Request struct {
	Identity Identity
	Fields   []string
	Optional []string
}

// FetchResponse is a raw transport result. Body must hold a JSON object when
// Status is a success.
type FetchResponse struct {
	Status int
	Body   []byte
}

// Transport performs network fetches. Timeouts and retries belong to the
// implementation.
type Transport interface {
	Fetch(ctx context.Context, req Request) (*FetchResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (*FetchResponse, error)

func (f TransportFunc) Fetch(ctx context.Context, req Request) (*FetchResponse, error) {
	return f(ctx, req)
}

// transportFailure converts a fetch outcome into a TransportError, or nil when
// the response can be ingested.
func transportFailure(id Identity, resp *FetchResponse, err error) *TransportError {
	if err != nil {
		return &TransportError{Identity: id, Err: err}
	}
	if resp == nil {
		return &TransportError{Identity: id, Message: "empty response"}
	}
	if resp.Status >= http.StatusBadRequest {
		message := strings.TrimSpace(string(resp.Body))
		if len(message) > 256 {
			message = message[:256]
		}
		if message == "" {
			message = http.StatusText(resp.Status)
		}
		return &TransportError{Identity: id, Status: resp.Status, Message: message}
	}
	return nil
}
