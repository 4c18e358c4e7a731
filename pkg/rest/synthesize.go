package rest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/restpipe/internal/constants"
)

// Args are the arguments of one call, keyed by parameter name.
type Args map[string]interface{}

// Positional maps values onto the descriptor's parameters in argument order.
func Positional(d *Descriptor, values ...interface{}) (Args, error) {
	if len(values) > len(d.params) {
		return nil, &MisuseError{
			Component: d.id,
			Reason:    fmt.Sprintf("%d arguments given, %d declared", len(values), len(d.params)),
		}
	}

	args := make(Args, len(values))
	for i, value := range values {
		args[d.params[i].Name] = value
	}

	return args, nil
}

// Synthesizer turns descriptors and arguments into requests against a base
// URL.
type Synthesizer struct {
	BaseURL *url.URL
}

// Synthesize builds the request for one call.
func (s Synthesizer) Synthesize(d *Descriptor, args Args) (*Request, error) {
	return Synthesize(s.BaseURL, d, args)
}

// Synthesize resolves d against base with args: path placeholders are
// substituted and escaped one segment at a time, static and argument headers
// are applied, and query parameters are appended in declaration order.
// It has no side effects.
func Synthesize(base *url.URL, d *Descriptor, args Args) (*Request, error) {
	if base == nil {
		return nil, &MisuseError{Component: d.id, Reason: "no base URL"}
	}

	rawPath, escapedPath, err := resolvePath(d, args)
	if err != nil {
		return nil, err
	}

	endpoint := *base
	endpoint.Path = strings.TrimSuffix(base.Path, "/") + rawPath
	endpoint.RawPath = strings.TrimSuffix(base.EscapedPath(), "/") + escapedPath

	query, err := resolveQuery(d, args)
	if err != nil {
		return nil, err
	}

	endpoint.RawQuery = query

	req := &Request{
		Method:     d.method,
		Endpoint:   &endpoint,
		Header:     d.headers.Clone(),
		descriptor: d,
	}

	if len(d.accepts) > 0 && !req.Header.Has(constants.HeaderAccept) {
		req.Header.Set(constants.HeaderAccept, strings.Join(d.accepts, ", "))
	}

	for _, param := range d.params {
		if param.In != InHeader {
			continue
		}

		values, present := formatValues(args[param.Name])
		if !present {
			if param.Required {
				return nil, &MissingArgumentError{Descriptor: d.id, Name: param.Name}
			}

			continue
		}

		req.Header.Del(param.wireName())

		for _, value := range values {
			req.Header.Add(param.wireName(), value)
		}
	}

	for _, param := range d.params {
		if (param.In == InBody || param.In == InPayload) && param.Required && args[param.Name] == nil {
			return nil, &MissingArgumentError{Descriptor: d.id, Name: param.Name}
		}
	}

	return req, nil
}

// resolvePath returns the decoded and escaped forms of the resolved path.
// Literals keep their slashes; substituted values are escaped as a single
// segment.
func resolvePath(d *Descriptor, args Args) (string, string, error) {
	var rawPath, escapedPath strings.Builder

	for _, segment := range d.segments {
		if segment.placeholder == "" {
			rawPath.WriteString(segment.literal)
			escapedPath.WriteString((&url.URL{Path: segment.literal}).EscapedPath())

			continue
		}

		value, present := formatValue(args[segment.placeholder])
		if !present || value == "" {
			return "", "", &MissingArgumentError{Descriptor: d.id, Name: segment.placeholder}
		}

		rawPath.WriteString(value)
		escapedPath.WriteString(url.PathEscape(value))
	}

	return rawPath.String(), escapedPath.String(), nil
}

// resolveQuery encodes static then argument query parameters. Repeated keys
// are kept as separate values.
func resolveQuery(d *Descriptor, args Args) (string, error) {
	var parts []string

	for _, pair := range d.query {
		if len(pair.values) == 0 {
			parts = append(parts, url.QueryEscape(pair.key))

			continue
		}

		for _, value := range pair.values {
			parts = append(parts, url.QueryEscape(pair.key)+"="+url.QueryEscape(value))
		}
	}

	for _, param := range d.params {
		if param.In != InQuery {
			continue
		}

		values, present := formatValues(args[param.Name])
		if !present {
			if param.Required {
				return "", &MissingArgumentError{Descriptor: d.id, Name: param.Name}
			}

			continue
		}

		for _, value := range values {
			parts = append(parts, url.QueryEscape(param.wireName())+"="+url.QueryEscape(value))
		}
	}

	return strings.Join(parts, "&"), nil
}

// bindInput collects the body object and payload parameters for binders.
func bindInput(d *Descriptor, args Args) BindInput {
	in := BindInput{}

	for _, param := range d.params {
		value, ok := args[param.Name]
		if !ok || value == nil {
			continue
		}

		switch param.In {
		case InBody:
			in.Object = value
		case InPayload:
			if in.Params == nil {
				in.Params = make(map[string]interface{})
			}

			in.Params[param.Name] = value
		case InPath, InQuery, InHeader:
		}
	}

	return in
}

// formatValue renders a scalar argument. The boolean is false for nil.
func formatValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}

		return *v, true
	case []byte:
		return string(v), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// formatValues renders scalar or slice arguments as a value list.
func formatValues(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case []string:
		if v == nil {
			return nil, false
		}

		return v, true
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := formatValue(item)
			if ok {
				values = append(values, s)
			}
		}

		return values, true
	case []int:
		values := make([]string, 0, len(v))
		for _, item := range v {
			values = append(values, strconv.Itoa(item))
		}

		return values, true
	default:
		s, ok := formatValue(v)
		if !ok {
			return nil, false
		}

		return []string{s}, true
	}
}

// FormatValue renders a scalar argument the way the synthesizer does.
// Binders use it so that values render identically in paths, queries and
// payloads.
func FormatValue(value interface{}) (string, bool) {
	return formatValue(value)
}

// FormatValues renders scalar or slice arguments as a value list.
func FormatValues(value interface{}) ([]string, bool) {
	return formatValues(value)
}
