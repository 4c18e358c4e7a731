package binders

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

type jsonBinder struct{}

// JSON serializes the whole-object argument as JSON.
func JSON() rest.Binder {
	return jsonBinder{}
}

func (jsonBinder) Bind(req *rest.Request, in rest.BindInput) error {
	if in.Object == nil {
		return &rest.MisuseError{Component: "json binder", Reason: "needs an object"}
	}

	data, err := json.Marshal(in.Object)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	return req.SetPayload(rest.BytesPayload(contentType(req, constants.MediaTypeJSON), data))
}

type xmlBinder struct{}

// XML serializes the whole-object argument with encoding/xml.
func XML() rest.Binder {
	return xmlBinder{}
}

func (xmlBinder) Bind(req *rest.Request, in rest.BindInput) error {
	if in.Object == nil {
		return &rest.MisuseError{Component: "xml binder", Reason: "needs an object"}
	}

	data, err := xml.Marshal(in.Object)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	return req.SetPayload(rest.BytesPayload(contentType(req, constants.MediaTypeXML), data))
}

type rawBinder struct{}

// Raw sends the whole-object argument as is. It accepts strings, byte slices,
// readers and ready-made payloads.
func Raw() rest.Binder {
	return rawBinder{}
}

func (rawBinder) Bind(req *rest.Request, in rest.BindInput) error {
	ct := contentType(req, constants.MediaTypeOctetStream)

	switch object := in.Object.(type) {
	case nil:
		return &rest.MisuseError{Component: "raw binder", Reason: "needs an object"}
	case *rest.Payload:
		return req.SetPayload(object)
	case string:
		return req.SetPayload(rest.StringPayload(ct, object))
	case []byte:
		return req.SetPayload(rest.BytesPayload(ct, object))
	case io.Reader:
		return req.SetPayload(rest.StreamPayload(ct, object, -1))
	default:
		return &rest.MisuseError{
			Component: "raw binder",
			Reason:    fmt.Sprintf("cannot send %T", object),
		}
	}
}
