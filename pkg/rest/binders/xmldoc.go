package binders

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// XMLField places one named parameter in a generated document.
type XMLField struct {
	// Name is the attribute or element name.
	Name string
	// Param is the parameter name. Defaults to Name.
	Param     string
	Attribute bool
	Optional  bool
}

// Attr declares a required attribute of the root element.
func Attr(name string) XMLField {
	return XMLField{Name: name, Attribute: true}
}

// Elem declares a required child element.
func Elem(name string) XMLField {
	return XMLField{Name: name}
}

// From reads the value from another parameter.
func (f XMLField) From(param string) XMLField {
	f.Param = param

	return f
}

// AsOptional omits the field when its parameter is absent.
func (f XMLField) AsOptional() XMLField {
	f.Optional = true

	return f
}

func (f XMLField) param() string {
	if f.Param != "" {
		return f.Param
	}

	return f.Name
}

type xmlDocumentBinder struct {
	root   string
	fields []XMLField
}

// XMLDocument builds <root attr="..."><elem>...</elem></root> from named
// parameters. Attributes and elements follow declaration order; slice values
// repeat an element and are space-separated in an attribute.
func XMLDocument(root string, fields ...XMLField) rest.Binder {
	return xmlDocumentBinder{root: root, fields: fields}
}

func (b xmlDocumentBinder) Bind(req *rest.Request, in rest.BindInput) error {
	lookup := make([]field, 0, len(b.fields))
	for _, f := range b.fields {
		lookup = append(lookup, field{name: f.param(), optional: f.Optional})
	}

	resolved, err := resolve("xml document", lookup, in)
	if err != nil {
		return err
	}

	start := xml.StartElement{Name: xml.Name{Local: b.root}}

	for _, f := range b.fields {
		values, ok := resolved[f.param()]
		if !f.Attribute || !ok {
			continue
		}

		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: f.Name}, Value: strings.Join(values, " ")})
	}

	var buf bytes.Buffer

	encoder := xml.NewEncoder(&buf)

	err = encoder.EncodeToken(start)
	if err != nil {
		return fmt.Errorf("failed to encode xml document: %w", err)
	}

	for _, f := range b.fields {
		if f.Attribute {
			continue
		}

		for _, value := range resolved[f.param()] {
			err = encoder.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: f.Name}})
			if err != nil {
				return fmt.Errorf("failed to encode xml element %s: %w", f.Name, err)
			}
		}
	}

	err = encoder.EncodeToken(start.End())
	if err != nil {
		return fmt.Errorf("failed to encode xml document: %w", err)
	}

	err = encoder.Flush()
	if err != nil {
		return fmt.Errorf("failed to encode xml document: %w", err)
	}

	return req.SetPayload(rest.BytesPayload(contentType(req, constants.MediaTypeXML), buf.Bytes()))
}
