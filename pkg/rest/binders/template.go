package binders

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// Escaping selects how substituted values are escaped.
type Escaping int

const (
	// EscapeNone inserts values verbatim.
	EscapeNone Escaping = iota
	// EscapeXML escapes values as XML character data.
	EscapeXML
	// EscapeJSON escapes values as the inside of a JSON string.
	EscapeJSON
)

type templatePart struct {
	literal string
	name    string
}

type templateBinder struct {
	parts       []templatePart
	fields      []field
	escaping    Escaping
	contentType string
}

// TemplateOption configures a template binder.
type TemplateOption func(*templateBinder)

// WithEscaping sets the value escaping.
func WithEscaping(escaping Escaping) TemplateOption {
	return func(b *templateBinder) {
		b.escaping = escaping
	}
}

// WithContentType sets the payload media type.
func WithContentType(mediaType string) TemplateOption {
	return func(b *templateBinder) {
		b.contentType = mediaType
	}
}

// WithOptional marks placeholders that render as an empty string when their
// parameter is absent.
func WithOptional(names ...string) TemplateOption {
	return func(b *templateBinder) {
		for i := range b.fields {
			for _, name := range names {
				if b.fields[i].name == name {
					b.fields[i].optional = true
				}
			}
		}
	}
}

// Template substitutes {name} placeholders in tpl with the named parameters
// in a single pass: substituted text is never expanded again. Braces that do
// not enclose a plain name are kept literally, so JSON templates work as is.
func Template(tpl string, opts ...TemplateOption) rest.Binder {
	b := &templateBinder{contentType: constants.MediaTypeText}
	b.parts, b.fields = parseTemplate(tpl)

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *templateBinder) Bind(req *rest.Request, in rest.BindInput) error {
	resolved, err := resolve("template", b.fields, in)
	if err != nil {
		return err
	}

	var out strings.Builder

	for _, part := range b.parts {
		if part.name == "" {
			out.WriteString(part.literal)

			continue
		}

		out.WriteString(b.escape(strings.Join(resolved[part.name], ",")))
	}

	return req.SetPayload(rest.StringPayload(contentType(req, b.contentType), out.String()))
}

func (b *templateBinder) escape(value string) string {
	switch b.escaping {
	case EscapeXML:
		var buf bytes.Buffer

		_ = xml.EscapeText(&buf, []byte(value))

		return buf.String()
	case EscapeJSON:
		quoted, _ := json.Marshal(value)

		return string(quoted[1 : len(quoted)-1])
	case EscapeNone:
		return value
	default:
		return value
	}
}

func parseTemplate(tpl string) ([]templatePart, []field) {
	var (
		parts  []templatePart
		fields []field
		text   strings.Builder
	)

	seen := make(map[string]bool)

	for i := 0; i < len(tpl); i++ {
		if tpl[i] != '{' {
			text.WriteByte(tpl[i])

			continue
		}

		end := strings.IndexByte(tpl[i+1:], '}')
		if end < 0 || !isName(tpl[i+1:i+1+end]) {
			text.WriteByte(tpl[i])

			continue
		}

		if text.Len() > 0 {
			parts = append(parts, templatePart{literal: text.String()})
			text.Reset()
		}

		name := tpl[i+1 : i+1+end]
		parts = append(parts, templatePart{name: name})

		if !seen[name] {
			seen[name] = true
			fields = append(fields, field{name: name})
		}

		i += end + 1
	}

	if text.Len() > 0 {
		parts = append(parts, templatePart{literal: text.String()})
	}

	return parts, fields
}

func isName(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return false
		}
	}

	return true
}
