package rest

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

// Location says where a declared parameter is bound.
type Location int

const (
	// InPath binds the argument to a {placeholder} of the path template.
	InPath Location = iota
	// InQuery binds the argument to a query parameter.
	InQuery
	// InHeader binds the argument to a request header.
	InHeader
	// InBody passes the argument as the whole object to the binders.
	InBody
	// InPayload passes the argument as a named entry of the binder parameter map.
	InPayload
)

// String returns the location name used in descriptor tables.
func (l Location) String() string {
	switch l {
	case InPath:
		return "path"
	case InQuery:
		return "query"
	case InHeader:
		return "header"
	case InBody:
		return "body"
	case InPayload:
		return "payload"
	default:
		return "unknown"
	}
}

// ParseLocation converts a location name into a Location.
func ParseLocation(name string) (Location, error) {
	switch strings.ToLower(name) {
	case "path":
		return InPath, nil
	case "query":
		return InQuery, nil
	case "header":
		return InHeader, nil
	case "body":
		return InBody, nil
	case "payload", "":
		return InPayload, nil
	default:
		return 0, fmt.Errorf("%w: unknown parameter location %q", ErrInvalidDescriptor, name)
	}
}

// Param declares one argument of a method.
type Param struct {
	Name     string
	In       Location
	Required bool
	// WireName is the query key or header name. Defaults to Name.
	WireName string
}

func (p Param) wireName() string {
	if p.WireName != "" {
		return p.WireName
	}

	return p.Name
}

type pathSegment struct {
	literal     string
	placeholder string
}

type queryPair struct {
	key    string
	values []string
}

// Descriptor is the static, immutable description of one API method: how a
// call becomes a request and how a response or failure becomes a result.
// Build descriptors with NewDescriptor and cache them in a Registry.
type Descriptor struct {
	id           string
	method       string
	path         string
	segments     []pathSegment
	placeholders []string
	headers      *Headers
	query        []queryPair
	params       []Param
	binders      []Binder
	parser       Parser
	fallback     Fallback
	filters      []Filter
	consumes     string
	accepts      []string
	cacheTTL     time.Duration
}

// ID returns the stable method identifier.
func (d *Descriptor) ID() string { return d.id }

// Method returns the HTTP verb.
func (d *Descriptor) Method() string { return d.method }

// PathTemplate returns the unresolved path template.
func (d *Descriptor) PathTemplate() string { return d.path }

// Placeholders returns the placeholder names in template order.
func (d *Descriptor) Placeholders() []string {
	return append([]string(nil), d.placeholders...)
}

// Headers returns a copy of the static headers.
func (d *Descriptor) Headers() *Headers { return d.headers.Clone() }

// Params returns the declared parameters in argument order.
func (d *Descriptor) Params() []Param {
	return append([]Param(nil), d.params...)
}

// Binders returns the binder chain.
func (d *Descriptor) Binders() []Binder {
	return append([]Binder(nil), d.binders...)
}

// Parser returns the response parser.
func (d *Descriptor) Parser() Parser { return d.parser }

// Fallback returns the fallback policy.
func (d *Descriptor) Fallback() Fallback { return d.fallback }

// Filters returns the descriptor level filters.
func (d *Descriptor) Filters() []Filter {
	return append([]Filter(nil), d.filters...)
}

// Consumes returns the request media type.
func (d *Descriptor) Consumes() string { return d.consumes }

// Accepts returns the accepted response media types.
func (d *Descriptor) Accepts() []string {
	return append([]string(nil), d.accepts...)
}

// CacheTTL returns how long successful responses may be cached, 0 for never.
func (d *Descriptor) CacheTTL() time.Duration { return d.cacheTTL }

// String returns "ID VERB path".
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s %s %s", d.id, d.method, d.path)
}

// DescriptorBuilder accumulates descriptor declarations. Errors are
// reported by Build.
type DescriptorBuilder struct {
	d    *Descriptor
	errs []error
}

// NewDescriptor starts a descriptor for the method identified by id.
func NewDescriptor(id string) *DescriptorBuilder {
	return &DescriptorBuilder{
		d: &Descriptor{
			id:      id,
			method:  http.MethodGet,
			headers: NewHeaders(),
		},
	}
}

// Route sets the verb and path template.
func (b *DescriptorBuilder) Route(method, path string) *DescriptorBuilder {
	b.d.method = strings.ToUpper(method)
	b.d.path = path

	return b
}

// GET sets a GET route.
func (b *DescriptorBuilder) GET(path string) *DescriptorBuilder {
	return b.Route(http.MethodGet, path)
}

// POST sets a POST route.
func (b *DescriptorBuilder) POST(path string) *DescriptorBuilder {
	return b.Route(http.MethodPost, path)
}

// PUT sets a PUT route.
func (b *DescriptorBuilder) PUT(path string) *DescriptorBuilder {
	return b.Route(http.MethodPut, path)
}

// PATCH sets a PATCH route.
func (b *DescriptorBuilder) PATCH(path string) *DescriptorBuilder {
	return b.Route(http.MethodPatch, path)
}

// DELETE sets a DELETE route.
func (b *DescriptorBuilder) DELETE(path string) *DescriptorBuilder {
	return b.Route(http.MethodDelete, path)
}

// HEAD sets a HEAD route.
func (b *DescriptorBuilder) HEAD(path string) *DescriptorBuilder {
	return b.Route(http.MethodHead, path)
}

// Header adds a static header, applied verbatim.
func (b *DescriptorBuilder) Header(key, value string) *DescriptorBuilder {
	b.d.headers.Add(key, value)

	return b
}

// Query adds a static query parameter.
func (b *DescriptorBuilder) Query(key string, values ...string) *DescriptorBuilder {
	b.d.query = append(b.d.query, queryPair{key: key, values: values})

	return b
}

// Param declares a parameter.
func (b *DescriptorBuilder) Param(param Param) *DescriptorBuilder {
	if param.Name == "" {
		b.errs = append(b.errs, errors.New("parameter without a name"))

		return b
	}

	for _, existing := range b.d.params {
		if existing.Name == param.Name {
			b.errs = append(b.errs, fmt.Errorf("parameter %q declared twice", param.Name))

			return b
		}
	}

	b.d.params = append(b.d.params, param)

	return b
}

// PathParam declares a path parameter. Placeholders that are not declared
// are added automatically after the declared parameters.
func (b *DescriptorBuilder) PathParam(name string) *DescriptorBuilder {
	return b.Param(Param{Name: name, In: InPath, Required: true})
}

// QueryParam declares a query parameter.
func (b *DescriptorBuilder) QueryParam(name string, required bool) *DescriptorBuilder {
	return b.Param(Param{Name: name, In: InQuery, Required: required})
}

// HeaderParam declares a header parameter sent as header.
func (b *DescriptorBuilder) HeaderParam(name, header string, required bool) *DescriptorBuilder {
	return b.Param(Param{Name: name, In: InHeader, Required: required, WireName: header})
}

// BodyParam declares the whole-object argument.
func (b *DescriptorBuilder) BodyParam(name string) *DescriptorBuilder {
	return b.Param(Param{Name: name, In: InBody, Required: true})
}

// PayloadParam declares a named argument handed to map binders.
func (b *DescriptorBuilder) PayloadParam(name string, required bool) *DescriptorBuilder {
	return b.Param(Param{Name: name, In: InPayload, Required: required})
}

// Consumes sets the request media type.
func (b *DescriptorBuilder) Consumes(mediaType string) *DescriptorBuilder {
	b.d.consumes = mediaType

	return b
}

// Accepts sets the accepted response media types.
func (b *DescriptorBuilder) Accepts(mediaTypes ...string) *DescriptorBuilder {
	b.d.accepts = append(b.d.accepts, mediaTypes...)

	return b
}

// Bind appends binders to the binder chain.
func (b *DescriptorBuilder) Bind(binders ...Binder) *DescriptorBuilder {
	b.d.binders = append(b.d.binders, binders...)

	return b
}

// Parse sets the response parser.
func (b *DescriptorBuilder) Parse(parser Parser) *DescriptorBuilder {
	b.d.parser = parser

	return b
}

// Fallback sets the fallback policy. Only one is active per descriptor; a
// later call replaces an earlier one.
func (b *DescriptorBuilder) Fallback(fallback Fallback) *DescriptorBuilder {
	b.d.fallback = fallback

	return b
}

// Filter appends descriptor level filters.
func (b *DescriptorBuilder) Filter(filters ...Filter) *DescriptorBuilder {
	b.d.filters = append(b.d.filters, filters...)

	return b
}

// CacheFor allows successful GET responses to be cached for ttl.
func (b *DescriptorBuilder) CacheFor(ttl time.Duration) *DescriptorBuilder {
	b.d.cacheTTL = ttl

	return b
}

// Build validates the declarations and returns the immutable descriptor.
func (b *DescriptorBuilder) Build() (*Descriptor, error) {
	d := b.d
	errs := append([]error(nil), b.errs...)

	if d.id == "" {
		errs = append(errs, errors.New("descriptor without an id"))
	}

	if !strings.HasPrefix(d.path, "/") {
		errs = append(errs, fmt.Errorf("path template %q must start with /", d.path))
	}

	segments, placeholders, err := parsePathTemplate(d.path)
	if err != nil {
		errs = append(errs, err)
	}

	declared := make(map[string]bool, len(d.params))
	for _, param := range d.params {
		if param.In != InPath {
			continue
		}

		declared[param.Name] = true

		if !slices.Contains(placeholders, param.Name) {
			errs = append(errs, fmt.Errorf("path parameter %q has no placeholder in %q", param.Name, d.path))
		}
	}

	for _, name := range placeholders {
		if !declared[name] {
			d.params = append(d.params, Param{Name: name, In: InPath, Required: true})
		}
	}

	if d.cacheTTL > 0 && d.method != http.MethodGet {
		errs = append(errs, fmt.Errorf("only GET methods can be cached, got %s", d.method))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidDescriptor, d.id, errors.Join(errs...))
	}

	if d.parser == nil {
		d.parser = releaseParser{}
	}

	if d.fallback == nil {
		d.fallback = propagateFallback{}
	}

	d.segments = segments
	d.placeholders = placeholders
	b.d = nil

	return d, nil
}

// MustBuild is Build for package level declarations; it panics on error.
func (b *DescriptorBuilder) MustBuild() *Descriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}

	return d
}

// parsePathTemplate splits a template into literal and placeholder segments.
func parsePathTemplate(template string) ([]pathSegment, []string, error) {
	var (
		segments     []pathSegment
		placeholders []string
	)

	remaining := template
	for remaining != "" {
		open := strings.IndexByte(remaining, '{')
		closing := strings.IndexByte(remaining, '}')

		if open < 0 {
			if closing >= 0 {
				return nil, nil, fmt.Errorf("unbalanced '}' in path template %q", template)
			}

			segments = append(segments, pathSegment{literal: remaining})

			break
		}

		if closing >= 0 && closing < open {
			return nil, nil, fmt.Errorf("unbalanced '}' in path template %q", template)
		}

		if open > 0 {
			segments = append(segments, pathSegment{literal: remaining[:open]})
		}

		end := strings.IndexByte(remaining[open:], '}')
		if end < 0 {
			return nil, nil, fmt.Errorf("unterminated placeholder in path template %q", template)
		}

		name := strings.TrimSpace(remaining[open+1 : open+end])
		if name == "" || strings.ContainsAny(name, "{/") {
			return nil, nil, fmt.Errorf("invalid placeholder %q in path template %q", name, template)
		}

		segments = append(segments, pathSegment{placeholder: name})
		if !slices.Contains(placeholders, name) {
			placeholders = append(placeholders, name)
		}

		remaining = remaining[open+end+1:]
	}

	return segments, placeholders, nil
}
