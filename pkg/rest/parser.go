package rest

// Parser converts a successful response into the method's result. Parsers
// own the response body and must close it.
type Parser interface {
	Parse(resp *Response) (interface{}, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(resp *Response) (interface{}, error)

// Parse implements Parser.
func (f ParserFunc) Parse(resp *Response) (interface{}, error) {
	return f(resp)
}

// releaseParser is the default parser: it discards the body.
type releaseParser struct{}

func (releaseParser) Parse(resp *Response) (interface{}, error) {
	return nil, DrainAndClose(resp)
}

// DrainAndClose discards whatever is left of the body and closes it.
func DrainAndClose(resp *Response) error {
	_, err := resp.ReadAll()

	return err
}
