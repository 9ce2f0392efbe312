package passport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-authgate/passport-local/params"
)

const maxMemory = 32 << 20

// Request is the read-only view of an inbound request handed to strategies.
type Request struct {
	// Body holds the decoded request body; nil when the request has none or
	// its content type is not a form or JSON.
	Body params.Map
	// Query holds the decoded URL query.
	Query params.Map

	Header http.Header
	// HTTP is the underlying request, when there is one.
	HTTP *http.Request

	ctx context.Context
}

// Context returns the request's context.
func (r *Request) Context() context.Context {
	if r == nil {
		return context.Background()
	}
	if r.ctx != nil {
		return r.ctx
	}
	if r.HTTP != nil {
		return r.HTTP.Context()
	}
	return context.Background()
}

// WithContext returns a shallow copy of r carrying ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := new(Request)
	if r != nil {
		*r2 = *r
	}
	r2.ctx = ctx
	return r2
}

// NewRequest decodes the body and query of r into a Request. JSON bodies are
// buffered and restored so later handlers can read them again.
func NewRequest(r *http.Request) (*Request, error) {
	req := &Request{
		Query:  params.FromValues(r.URL.Query()),
		Header: r.Header,
		HTTP:   r,
	}

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return req, nil
	}

	switch mediaType {
	case "application/json":
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", params.ErrInvalidBody, err)
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if req.Body, err = params.FromJSON(bytes.NewReader(raw)); err != nil {
			return nil, err
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", params.ErrInvalidBody, err)
		}
		req.Body = params.FromValues(r.PostForm)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("%w: %v", params.ErrInvalidBody, err)
		}
		req.Body = params.FromValues(r.PostForm)
	}

	return req, nil
}
