package parsers

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// JSON decodes the body into T. Unknown fields are ignored.
func JSON[T any]() rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := body(resp, "json parser")
		if err != nil {
			return nil, err
		}

		var value T

		err = json.Unmarshal(data, &value)
		if err != nil {
			return nil, &rest.MalformedResponseError{Parser: "json parser", Fragment: fragment(data), Err: err}
		}

		return value, nil
	})
}

// XML decodes the body into T. Unknown elements are ignored.
func XML[T any]() rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := body(resp, "xml parser")
		if err != nil {
			return nil, err
		}

		var value T

		err = xml.Unmarshal(data, &value)
		if err != nil {
			return nil, &rest.MalformedResponseError{Parser: "xml parser", Fragment: fragment(data), Err: err}
		}

		return value, nil
	})
}

// JSONField unwraps one value from an envelope, e.g. JSONField[string]("server",
// "id") reads {"server":{"id":"..."}}.
func JSONField[T any](path ...string) rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := body(resp, "json field parser")
		if err != nil {
			return nil, err
		}

		var current json.RawMessage = data

		for _, key := range path {
			var envelope map[string]json.RawMessage

			err = json.Unmarshal(current, &envelope)
			if err != nil {
				return nil, &rest.MalformedResponseError{Parser: "json field parser", Fragment: fragment(current), Err: err}
			}

			next, ok := envelope[key]
			if !ok {
				return nil, &rest.MalformedResponseError{
					Parser:   "json field parser",
					Fragment: fragment(current),
					Err:      fmt.Errorf("%w: field %q not present", rest.ErrMalformedResponse, key),
				}
			}

			current = next
		}

		var value T

		err = json.Unmarshal(current, &value)
		if err != nil {
			return nil, &rest.MalformedResponseError{Parser: "json field parser", Fragment: fragment(current), Err: err}
		}

		return value, nil
	})
}

// body reads a body that structured parsers require to be present.
func body(resp *rest.Response, parser string) ([]byte, error) {
	data, err := resp.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &rest.MalformedResponseError{Parser: parser, Fragment: ""}
	}

	return data, nil
}
