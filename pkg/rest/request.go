package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/fivetwenty-io/restpipe/internal/constants"
)

// Request is the per-call value produced by the synthesizer, extended by
// binders and filters and handed to a Dispatcher.
type Request struct {
	Method   string
	Endpoint *url.URL
	Header   *Headers

	payload    *Payload
	applied    []string
	attributes map[string]interface{}
	descriptor *Descriptor
}

// NewRequest creates a request without a descriptor.
func NewRequest(method string, endpoint *url.URL) *Request {
	return &Request{
		Method:   method,
		Endpoint: endpoint,
		Header:   NewHeaders(),
	}
}

// Descriptor returns the descriptor the request was synthesized from, or nil.
func (r *Request) Descriptor() *Descriptor {
	return r.descriptor
}

// Payload returns the request body, or nil.
func (r *Request) Payload() *Payload {
	return r.payload
}

// SetPayload sets the request body. A request carries at most one payload;
// setting a second one fails with ErrPayloadAlreadySet.
func (r *Request) SetPayload(payload *Payload) error {
	if r.payload != nil {
		return fmt.Errorf("%w: %s already carries %s", ErrPayloadAlreadySet, r.RequestLine(), r.payload.ContentType)
	}

	if payload.ContentType == "" && r.descriptor != nil {
		payload.ContentType = r.descriptor.consumes
	}

	if payload.ContentType == "" {
		payload.ContentType = constants.MediaTypeOctetStream
	}

	r.payload = payload

	return nil
}

// ReplacePayload swaps the body for binders that explicitly extend the
// payload a previous binder produced.
func (r *Request) ReplacePayload(payload *Payload) {
	r.payload = nil
	_ = r.SetPayload(payload)
}

// AppliedFilters returns the names of filters applied so far, in order.
func (r *Request) AppliedFilters() []string {
	return append([]string(nil), r.applied...)
}

// markApplied records a filter name once.
func (r *Request) markApplied(name string) bool {
	if slices.Contains(r.applied, name) {
		return false
	}

	r.applied = append(r.applied, name)

	return true
}

// Attribute returns a per-request value stored by a filter.
func (r *Request) Attribute(key string) (interface{}, bool) {
	value, ok := r.attributes[key]

	return value, ok
}

// SetAttribute stores a per-request value. Filters use attributes to keep
// values such as a signing timestamp stable across replays.
func (r *Request) SetAttribute(key string, value interface{}) {
	if r.attributes == nil {
		r.attributes = make(map[string]interface{})
	}

	r.attributes[key] = value
}

// RequestLine returns "VERB URL".
func (r *Request) RequestLine() string {
	if r.Endpoint == nil {
		return r.Method
	}

	return r.Method + " " + r.Endpoint.String()
}

// HTTPRequest renders the request for net/http. Header keys keep their
// casing.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	if r.Endpoint == nil {
		return nil, &MisuseError{Component: "request", Reason: "no endpoint"}
	}

	var body io.Reader
	if r.payload != nil {
		body = r.payload.Reader()
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, r.Endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating http request: %w", err)
	}

	httpReq.Header = r.Header.HTTP()

	if r.payload != nil {
		httpReq.ContentLength = r.payload.ContentLength()
		if !r.Header.Has(constants.HeaderContentType) {
			httpReq.Header.Set(constants.HeaderContentType, r.payload.ContentType)
		}
	}

	return httpReq, nil
}

// ParseRequestLine recovers the verb and URL of a RequestLine.
func ParseRequestLine(line string) (string, *url.URL, error) {
	method, rawURL, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok {
		return "", nil, fmt.Errorf("%w: request line %q", ErrMisuse, line)
	}

	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("parsing request line: %w", err)
	}

	return method, endpoint, nil
}

// Response is what a Dispatcher returns for a 2xx answer. The body can be
// read once.
type Response struct {
	StatusCode int
	Status     string
	Header     *Headers
	Body       io.ReadCloser
}

// NewResponse wraps an http.Response.
func NewResponse(resp *http.Response) *Response {
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     HeadersFrom(resp.Header),
		Body:       resp.Body,
	}
}

// Close releases the body. It is safe to call more than once.
func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}

	body := r.Body
	r.Body = nil

	return body.Close()
}

// ReadAll consumes and closes the body. A missing body yields nil.
func (r *Response) ReadAll() ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, nil
	}

	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return data, nil
}
