package table

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/binders"
	"github.com/fivetwenty-io/restpipe/pkg/rest/fallbacks"
	"github.com/fivetwenty-io/restpipe/pkg/rest/filters"
	"github.com/fivetwenty-io/restpipe/pkg/rest/parsers"
)

// Option configures how table entries become descriptors.
type Option func(*resolver)

// WithFilter makes filter available to methods under name.
func WithFilter(name string, filter rest.Filter) Option {
	return func(r *resolver) {
		r.filters[name] = filter
	}
}

type resolver struct {
	filters map[string]rest.Filter
}

func newResolver(opts []Option) *resolver {
	r := &resolver{
		filters: map[string]rest.Filter{
			"request-id": filters.RequestID(),
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *resolver) build(method Method) (*rest.Descriptor, error) {
	builder := rest.NewDescriptor(method.ID)

	verb := method.Verb
	if verb == "" {
		verb = "GET"
	}

	builder.Route(verb, method.Path)

	for _, header := range method.Headers {
		builder.Header(header.Name, header.Value)
	}

	for _, query := range method.Query {
		builder.Query(query.Key, query.Values...)
	}

	for _, param := range method.Params {
		in, err := rest.ParseLocation(param.In)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", method.ID, err)
		}

		builder.Param(rest.Param{
			Name:     param.Name,
			In:       in,
			Required: param.Required,
			WireName: param.WireName,
		})
	}

	for _, binding := range method.Bind {
		builder.Bind(binder(binding))
	}

	for _, name := range method.Filters {
		filter, ok := r.filters[name]
		if !ok {
			return nil, fmt.Errorf("method %s: %w %q", method.ID, ErrUnknownFilter, name)
		}

		builder.Filter(filter)
	}

	if method.Consumes != "" {
		builder.Consumes(method.Consumes)
	}

	builder.Accepts(method.Accepts...)
	builder.Parse(parser(method.Parser))
	builder.Fallback(fallback(method.Fallback, method.RetryStatus))

	if method.CacheTTL > 0 {
		builder.CacheFor(method.CacheTTL)
	}

	return builder.Build()
}

func binder(binding Binding) rest.Binder {
	switch binding.Kind {
	case "xml":
		return binders.XML()
	case "raw":
		return binders.Raw()
	case "keyvalue":
		return binders.KeyValue(binding.Fields...)
	case "form":
		return binders.Form(binding.Fields...)
	case "template":
		opts := []binders.TemplateOption{binders.WithEscaping(escaping(binding.Escaping))}
		if binding.ContentType != "" {
			opts = append(opts, binders.WithContentType(binding.ContentType))
		}

		return binders.Template(binding.Template, opts...)
	case "xml_document":
		return binders.XMLDocument(binding.Root, xmlFields(binding.Fields)...)
	default:
		return binders.JSON()
	}
}

func escaping(name string) binders.Escaping {
	switch name {
	case "xml":
		return binders.EscapeXML
	case "json":
		return binders.EscapeJSON
	default:
		return binders.EscapeNone
	}
}

// xmlFields reads "@attr", "elem" and "elem=param" entries; a trailing "?"
// marks the field optional.
func xmlFields(entries []string) []binders.XMLField {
	fields := make([]binders.XMLField, 0, len(entries))

	for _, entry := range entries {
		optional := strings.HasSuffix(entry, "?")
		entry = strings.TrimSuffix(entry, "?")

		name, param, _ := strings.Cut(entry, "=")

		var field binders.XMLField
		if attr, ok := strings.CutPrefix(name, "@"); ok {
			field = binders.Attr(attr)
		} else {
			field = binders.Elem(name)
		}

		if param != "" {
			field = field.From(param)
		}

		if optional {
			field = field.AsOptional()
		}

		fields = append(fields, field)
	}

	return fields
}

func parser(p Parser) rest.Parser {
	switch p.Kind {
	case "bool":
		return parsers.Bool()
	case "string":
		return parsers.String()
	case "lines":
		return parsers.Lines()
	case "lines_field":
		return parsers.LinesField(p.Field)
	case "keyvalue":
		return parsers.KeyValue()
	case "json":
		return parsers.JSON[interface{}]()
	case "json_field":
		return parsers.JSONField[interface{}](p.Path...)
	default:
		return parsers.Release()
	}
}

func fallback(kind string, retryStatus []int) rest.Fallback {
	switch kind {
	case "null_on_not_found":
		return fallbacks.NullOnNotFound()
	case "void_on_not_found":
		return fallbacks.VoidOnNotFound()
	case "empty_on_not_found":
		return fallbacks.EmptyOnNotFound()
	case "false_on_not_found_or_422":
		return fallbacks.FalseOnNotFoundOr422()
	case "translate":
		return fallbacks.TranslateStatus(fallbacks.DefaultTranslations())
	case "retry_on_transport":
		return fallbacks.RetryOnTransport()
	case "retry_on_status":
		return fallbacks.RetryOnStatus(retryStatus...)
	default:
		return fallbacks.Propagate()
	}
}
