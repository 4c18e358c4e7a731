package binders

import (
	"strings"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

type field struct {
	name     string
	optional bool
}

func parseFields(names []string) []field {
	fields := make([]field, 0, len(names))
	for _, name := range names {
		optional := strings.HasSuffix(name, "?")
		fields = append(fields, field{
			name:     strings.TrimSuffix(name, "?"),
			optional: optional,
		})
	}

	return fields
}

func anyRequired(fields []field) bool {
	for _, f := range fields {
		if !f.optional {
			return true
		}
	}

	return false
}

// params returns the named arguments of in. A map object stands in for
// named arguments when none were declared.
func params(in rest.BindInput) map[string]interface{} {
	if in.HasParams() {
		return in.Params
	}

	switch object := in.Object.(type) {
	case map[string]interface{}:
		return object
	case rest.Args:
		return object
	case map[string]string:
		converted := make(map[string]interface{}, len(object))
		for key, value := range object {
			converted[key] = value
		}

		return converted
	}

	return nil
}

// resolve looks up every field, failing on absent required ones. Absent
// optional fields map to nil.
func resolve(binder string, fields []field, in rest.BindInput) (map[string][]string, error) {
	values := params(in)
	if len(values) == 0 && anyRequired(fields) {
		return nil, &rest.MisuseError{Component: binder + " binder", Reason: "needs parameters"}
	}

	resolved := make(map[string][]string, len(fields))

	for _, f := range fields {
		rendered, present := rest.FormatValues(values[f.name])
		if !present {
			if !f.optional {
				return nil, &rest.MissingParameterError{Binder: binder, Name: f.name}
			}

			continue
		}

		resolved[f.name] = rendered
	}

	return resolved, nil
}

// contentType prefers the descriptor's declared request media type.
func contentType(req *rest.Request, fallback string) string {
	if d := req.Descriptor(); d != nil && d.Consumes() != "" {
		return d.Consumes()
	}

	return fallback
}
