package parsers

import (
	"strings"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// KeyValue parses "key value" lines into records. Records are separated by
// blank lines; the value is everything after the first run of whitespace.
// It returns []map[string]string.
func KeyValue() rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := resp.ReadAll()
		if err != nil {
			return nil, err
		}

		return parseRecords(string(data)), nil
	})
}

// KeyValueRecord builds one typed record from the first key/value record.
// A body without records is malformed.
func KeyValueRecord[T any](build func(record map[string]string) (T, error)) rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := resp.ReadAll()
		if err != nil {
			return nil, err
		}

		records := parseRecords(string(data))
		if len(records) == 0 {
			return nil, &rest.MalformedResponseError{Parser: "keyvalue record parser", Fragment: fragment(data)}
		}

		record, err := build(records[0])
		if err != nil {
			return nil, &rest.MalformedResponseError{Parser: "keyvalue record parser", Fragment: fragment(data), Err: err}
		}

		return record, nil
	})
}

// KeyValueRecords builds a typed record from every key/value record.
func KeyValueRecords[T any](build func(record map[string]string) (T, error)) rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := resp.ReadAll()
		if err != nil {
			return nil, err
		}

		records := parseRecords(string(data))
		result := make([]T, 0, len(records))

		for _, fields := range records {
			record, err := build(fields)
			if err != nil {
				return nil, &rest.MalformedResponseError{Parser: "keyvalue records parser", Fragment: fragment(data), Err: err}
			}

			result = append(result, record)
		}

		return result, nil
	})
}

func parseRecords(text string) []map[string]string {
	records := []map[string]string{}

	var current map[string]string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			current = nil

			continue
		}

		if current == nil {
			current = make(map[string]string)
			records = append(records, current)
		}

		key, value := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			key, value = line[:i], strings.TrimSpace(line[i+1:])
		}

		current[key] = value
	}

	return records
}
