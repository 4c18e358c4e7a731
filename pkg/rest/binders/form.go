package binders

import (
	"net/url"
	"strings"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

type formBinder struct {
	fields []field
}

// Form renders the fields as application/x-www-form-urlencoded, in field
// order. When an earlier binder already produced a form payload, the fields
// are appended to it.
func Form(fields ...string) rest.Binder {
	return formBinder{fields: parseFields(fields)}
}

func (b formBinder) Bind(req *rest.Request, in rest.BindInput) error {
	resolved, err := resolve("form", b.fields, in)
	if err != nil {
		return err
	}

	pairs := make([]string, 0, len(b.fields))

	for _, f := range b.fields {
		for _, value := range resolved[f.name] {
			pairs = append(pairs, url.QueryEscape(f.name)+"="+url.QueryEscape(value))
		}
	}

	existing := req.Payload()
	if existing != nil && !existing.IsStream() && existing.ContentType == constants.MediaTypeForm {
		if prior := existing.String(); prior != "" {
			pairs = append([]string{prior}, pairs...)
		}

		req.ReplacePayload(rest.StringPayload(constants.MediaTypeForm, strings.Join(pairs, "&")))

		return nil
	}

	return req.SetPayload(rest.StringPayload(constants.MediaTypeForm, strings.Join(pairs, "&")))
}
