package parsers_test

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(body string) *rest.Response {
	return &rest.Response{
		StatusCode: 200,
		Status:     "200 OK",
		Header:     rest.NewHeaders(),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true

	return nil
}

func TestRelease(t *testing.T) {
	t.Parallel()

	body := &trackingBody{Reader: strings.NewReader("ignored")}
	result, err := parsers.Release().Parse(&rest.Response{StatusCode: 204, Body: body})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.True(t, body.closed)

	result, err = parsers.Release().Parse(&rest.Response{StatusCode: 204})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestBoolAndString(t *testing.T) {
	t.Parallel()

	result, err := parsers.Bool().Parse(&rest.Response{StatusCode: 202})
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = parsers.String().Parse(response("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestLines(t *testing.T) {
	t.Parallel()

	result, err := parsers.Lines().Parse(response("one\r\n\ntwo three\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two three"}, result)

	result, err = parsers.LinesField(1).Parse(response("srv-1 web running\nsrv-2\nsrv-3 db stopped\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "db"}, result)

	result, err = parsers.Lines().Parse(response(""))
	require.NoError(t, err)
	assert.Equal(t, []string{}, result)
}

func TestKeyValue(t *testing.T) {
	t.Parallel()

	body := "name web\nsize 10000\nuse production candy\n\nname db\nsize 20\n"

	result, err := parsers.KeyValue().Parse(response(body))
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"name": "web", "size": "10000", "use": "production candy"},
		{"name": "db", "size": "20"},
	}, result)
}

type server struct {
	Name string
	Size int
}

func buildServer(record map[string]string) (server, error) {
	size, err := strconv.Atoi(record["size"])
	if err != nil {
		return server{}, err
	}

	return server{Name: record["name"], Size: size}, nil
}

func TestKeyValueRecords(t *testing.T) {
	t.Parallel()

	result, err := parsers.KeyValueRecords(buildServer).Parse(response("name web\nsize 1\n\nname db\nsize 2"))
	require.NoError(t, err)
	assert.Equal(t, []server{{Name: "web", Size: 1}, {Name: "db", Size: 2}}, result)

	result, err = parsers.KeyValueRecord(buildServer).Parse(response("name web\nsize 1"))
	require.NoError(t, err)
	assert.Equal(t, server{Name: "web", Size: 1}, result)

	_, err = parsers.KeyValueRecord(buildServer).Parse(response("name web\nsize lots"))
	require.Error(t, err)
	assert.ErrorIs(t, err, rest.ErrMalformedResponse)

	_, err = parsers.KeyValueRecord(buildServer).Parse(response("\n\n"))
	assert.ErrorIs(t, err, rest.ErrMalformedResponse)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	result, err := parsers.JSON[*payload]().Parse(response(`{"id":"42","name":"web","unknown":true}`))
	require.NoError(t, err)
	require.IsType(t, &payload{}, result)
	assert.Equal(t, &payload{ID: "42", Name: "web"}, result)

	_, err = parsers.JSON[payload]().Parse(response(""))
	require.Error(t, err)

	var malformed *rest.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "json parser", malformed.Parser)

	_, err = parsers.JSON[payload]().Parse(response(`{"id":`))
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, `{"id":`, malformed.Fragment)
}

func TestXML(t *testing.T) {
	t.Parallel()

	type payload struct {
		ID   string `xml:"id,attr"`
		Name string `xml:"name"`
	}

	result, err := parsers.XML[payload]().Parse(response(`<server id="7"><name>web</name><extra/></server>`))
	require.NoError(t, err)
	assert.Equal(t, payload{ID: "7", Name: "web"}, result)

	_, err = parsers.XML[payload]().Parse(response("<server"))
	assert.ErrorIs(t, err, rest.ErrMalformedResponse)
}

func TestJSONField(t *testing.T) {
	t.Parallel()

	result, err := parsers.JSONField[string]("server", "id").Parse(response(`{"server":{"id":"abc","name":"web"}}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", result)

	_, err = parsers.JSONField[string]("server", "missing").Parse(response(`{"server":{"id":"abc"}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, rest.ErrMalformedResponse))
}
