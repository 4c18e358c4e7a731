package parsers

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// Release drains and closes the body and returns nil. It tolerates responses
// without a body.
func Release() rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		return nil, rest.DrainAndClose(resp)
	})
}

// Bool returns true for any successful response, whatever the body.
func Bool() rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		err := rest.DrainAndClose(resp)
		if err != nil {
			return nil, err
		}

		return true, nil
	})
}

// String returns the body as text.
func String() rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := resp.ReadAll()
		if err != nil {
			return nil, err
		}

		return string(data), nil
	})
}

// Lines returns the non-blank lines of the body.
func Lines() rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := resp.ReadAll()
		if err != nil {
			return nil, err
		}

		return splitLines(data), nil
	})
}

// LinesField returns the n-th whitespace separated field (zero based) of
// every non-blank line. Lines with fewer fields are skipped.
func LinesField(n int) rest.Parser {
	return rest.ParserFunc(func(resp *rest.Response) (interface{}, error) {
		data, err := resp.ReadAll()
		if err != nil {
			return nil, err
		}

		var values []string

		for _, line := range splitLines(data) {
			fields := strings.Fields(line)
			if len(fields) > n {
				values = append(values, fields[n])
			}
		}

		if values == nil {
			values = []string{}
		}

		return values, nil
	})
}

func splitLines(data []byte) []string {
	lines := []string{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), len(data)+1)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		lines = append(lines, line)
	}

	return lines
}

// fragment returns the start of a body for error reports.
func fragment(data []byte) string {
	if len(data) > constants.FragmentSize {
		return string(data[:constants.FragmentSize])
	}

	return string(data)
}
