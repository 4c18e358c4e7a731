package binders

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

type keyValueBinder struct {
	fields []field
}

// KeyValue renders one "key value" line per field, in field order. Slice
// values are joined with single spaces. Values containing line breaks are
// rejected.
func KeyValue(fields ...string) rest.Binder {
	return keyValueBinder{fields: parseFields(fields)}
}

func (b keyValueBinder) Bind(req *rest.Request, in rest.BindInput) error {
	resolved, err := resolve("keyvalue", b.fields, in)
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(b.fields))

	for _, f := range b.fields {
		values, ok := resolved[f.name]
		if !ok {
			continue
		}

		value := strings.Join(values, " ")
		if strings.ContainsAny(value, "\r\n") {
			return &rest.MisuseError{
				Component: "keyvalue binder",
				Reason:    fmt.Sprintf("value of %s contains a line break", f.name),
			}
		}

		lines = append(lines, f.name+" "+value)
	}

	return req.SetPayload(rest.StringPayload(contentType(req, constants.MediaTypeText), strings.Join(lines, "\n")))
}
