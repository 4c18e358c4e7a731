package table_test

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/filters"
	"github.com/fivetwenty-io/restpipe/pkg/rest/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serversTable = `
methods:
  - id: servers.create
    verb: post
    path: /zones/{zone}/servers
    accepts: [text/plain]
    params:
      - {name: zone, in: path, required: true}
      - {name: name, in: payload, required: true}
      - {name: size, in: payload}
    bind:
      - kind: keyvalue
        fields: [name, size?]
    parser: {kind: keyvalue}
    filters: [auth]
  - id: servers.get
    path: /servers/{id}
    headers:
      - {name: X-Api-Version, value: "2"}
    query:
      - {key: format, values: [json]}
    params:
      - {name: expand, in: query}
    parser: {kind: json_field, path: [server, name]}
    fallback: null_on_not_found
    cache_ttl: 5m
  - id: servers.tag
    verb: PUT
    path: /servers/{id}/tags
    consumes: application/xml
    params:
      - {name: tags, in: payload, required: true}
      - {name: note, in: payload}
    bind:
      - kind: xml_document
        root: tags
        fields: ["@id", "tag=tags", "note?"]
    fallback: retry_on_status
    retry_status: [503]
`

func TestParse_BuildsDescriptors(t *testing.T) {
	t.Parallel()

	tbl, err := table.Parse([]byte(serversTable))
	require.NoError(t, err)
	assert.Equal(t, []string{"servers.create", "servers.get", "servers.tag"}, tbl.IDs())

	descriptors, err := tbl.Descriptors(table.WithFilter("auth", filters.BasicAuth("user", "pass")))
	require.NoError(t, err)
	require.Len(t, descriptors, 3)

	create := descriptors[0]
	assert.Equal(t, "servers.create POST /zones/{zone}/servers", create.String())
	assert.Len(t, create.Binders(), 1)
	assert.Len(t, create.Filters(), 1)

	get := descriptors[1]
	assert.Equal(t, "GET", get.Method())
	assert.Equal(t, 5*time.Minute, get.CacheTTL())
	assert.Equal(t, "2", get.Headers().Get("X-Api-Version"))
	assert.Equal(t, []string{"id"}, get.Placeholders())

	params := get.Params()
	require.Len(t, params, 2)
	assert.Equal(t, "expand", params[0].Name)
	assert.Equal(t, rest.InQuery, params[0].In)
	assert.Equal(t, "id", params[1].Name)

	assert.Equal(t, "application/xml", descriptors[2].Consumes())
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		message string
	}{
		{
			name:    "no methods",
			yaml:    "methods: []",
			message: "methods: must be at least 1",
		},
		{
			name:    "missing path",
			yaml:    "methods:\n  - id: a\n",
			message: "methods[0].path: is required",
		},
		{
			name:    "relative path",
			yaml:    "methods:\n  - id: a\n    path: servers\n",
			message: "methods[0].path: must start with /",
		},
		{
			name:    "unknown binder kind",
			yaml:    "methods:\n  - id: a\n    path: /a\n    bind:\n      - kind: protobuf\n",
			message: "methods[0].bind[0].kind: must be one of",
		},
		{
			name:    "template without text",
			yaml:    "methods:\n  - id: a\n    path: /a\n    bind:\n      - kind: template\n",
			message: "methods[0].bind[0].template: is required",
		},
		{
			name:    "duplicate ids",
			yaml:    "methods:\n  - {id: a, path: /a}\n  - {id: a, path: /b}\n",
			message: "methods: must be unique by id",
		},
		{
			name:    "unknown key",
			yaml:    "methods:\n  - {id: a, path: /a, method: GET}\n",
			message: "field method not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := table.Parse([]byte(tt.yaml))
			require.Error(t, err)
			require.ErrorIs(t, err, table.ErrInvalidTable)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDescriptors_UnknownFilter(t *testing.T) {
	t.Parallel()

	tbl, err := table.Parse([]byte(serversTable))
	require.NoError(t, err)

	_, err = tbl.Descriptors()
	require.ErrorIs(t, err, table.ErrUnknownFilter)
	assert.Contains(t, err.Error(), `servers.create`)
}

func TestDescriptors_InvalidTemplatePath(t *testing.T) {
	t.Parallel()

	tbl, err := table.Parse([]byte("methods:\n  - {id: a, path: '/a/{id'}\n"))
	require.NoError(t, err)

	_, err = tbl.Descriptors()
	require.ErrorIs(t, err, rest.ErrInvalidDescriptor)
}

func TestLoad_RegistersAndInvokes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "servers.yml")
	require.NoError(t, os.WriteFile(path, []byte(serversTable), 0o600))

	tbl, err := table.Load(path)
	require.NoError(t, err)

	registry := rest.NewRegistry()
	tbl.Register(registry, table.WithFilter("auth", filters.BasicAuth("Aladdin", "open sesame")))
	assert.Equal(t, []string{"servers.create", "servers.get", "servers.tag"}, registry.IDs())

	var seen *rest.Request

	dispatcher := rest.DispatcherFunc(func(_ context.Context, req *rest.Request) (*rest.Response, error) {
		seen = req

		return &rest.Response{
			StatusCode: 201,
			Header:     rest.NewHeaders(),
			Body:       io.NopCloser(strings.NewReader("id 42\nname web\n")),
		}, nil
	})

	base, err := url.Parse("https://api.example.com/v1")
	require.NoError(t, err)

	invoker := rest.NewInvoker(base, dispatcher, rest.WithRegistry(registry))

	records, err := rest.InvokeID[[]map[string]string](context.Background(), invoker, "servers.create", rest.Args{
		"zone": "eu-1",
		"name": "web",
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"id": "42", "name": "web"}}, records)

	require.NotNil(t, seen)
	assert.Equal(t, "POST https://api.example.com/v1/zones/eu-1/servers", seen.RequestLine())
	assert.Equal(t, "name web", seen.Payload().String())
	assert.Equal(t, "text/plain", seen.Header.Get("Accept"))
	assert.Equal(t, "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ==", seen.Header.Get("Authorization"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := table.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading descriptor table")
}

func TestXMLDocumentBinding(t *testing.T) {
	t.Parallel()

	tbl, err := table.Parse([]byte(serversTable))
	require.NoError(t, err)

	descriptors, err := tbl.Descriptors(table.WithFilter("auth", filters.RequestID()))
	require.NoError(t, err)

	base, err := url.Parse("https://api.example.com")
	require.NoError(t, err)

	invoker := rest.NewInvoker(base, nil)

	req, err := invoker.Request(context.Background(), descriptors[2], rest.Args{
		"id":   "7",
		"tags": []string{"web", "db"},
	})
	require.NoError(t, err)
	assert.Equal(t, `<tags id="7"><tag>web</tag><tag>db</tag></tags>`, req.Payload().String())
	assert.Equal(t, "application/xml", req.Payload().ContentType)
}
