package binders_test

import (
	"encoding/xml"
	"net/url"
	"strings"
	"testing"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/binders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *rest.Request {
	t.Helper()

	endpoint, err := url.Parse("https://api.example.com/v1/things")
	require.NoError(t, err)

	return rest.NewRequest("POST", endpoint)
}

func TestKeyValue(t *testing.T) {
	t.Parallel()

	req := newRequest(t)

	err := binders.KeyValue("name", "size", "use").Bind(req, rest.BindInput{
		Params: map[string]interface{}{
			"name": "foo",
			"use":  []string{"production", "candy"},
			"size": 10000,
		},
	})
	require.NoError(t, err)

	require.NotNil(t, req.Payload())
	assert.Equal(t, "name foo\nsize 10000\nuse production candy", req.Payload().String())
	assert.Equal(t, "text/plain", req.Payload().ContentType)
}

func TestKeyValue_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing required parameter", func(t *testing.T) {
		t.Parallel()

		err := binders.KeyValue("name", "size").Bind(newRequest(t), rest.BindInput{
			Params: map[string]interface{}{"name": "foo"},
		})
		require.Error(t, err)

		var missing *rest.MissingParameterError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "size", missing.Name)
		assert.Equal(t, "keyvalue: size parameter not present", err.Error())
		assert.ErrorIs(t, err, rest.ErrMissingParameter)
	})

	t.Run("no parameters at all", func(t *testing.T) {
		t.Parallel()

		err := binders.KeyValue("name").Bind(newRequest(t), rest.BindInput{})
		require.Error(t, err)
		assert.ErrorIs(t, err, rest.ErrMisuse)
		assert.Contains(t, err.Error(), "needs parameters")
	})

	t.Run("line break in value", func(t *testing.T) {
		t.Parallel()

		req := newRequest(t)
		err := binders.KeyValue("name").Bind(req, rest.BindInput{
			Params: map[string]interface{}{"name": "foo\nsize 1"},
		})
		require.ErrorIs(t, err, rest.ErrMisuse)
		assert.Contains(t, err.Error(), "line break")
		assert.Nil(t, req.Payload())
	})

	t.Run("optional field skipped", func(t *testing.T) {
		t.Parallel()

		req := newRequest(t)
		err := binders.KeyValue("name", "size?").Bind(req, rest.BindInput{
			Params: map[string]interface{}{"name": "foo"},
		})
		require.NoError(t, err)
		assert.Equal(t, "name foo", req.Payload().String())
	})
}

func TestTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		opts     []binders.TemplateOption
		params   map[string]interface{}
		expected string
	}{
		{
			name:     "values are not expanded again",
			template: "<name>{name}</name><note>{note}</note>",
			opts:     []binders.TemplateOption{binders.WithEscaping(binders.EscapeXML)},
			params:   map[string]interface{}{"name": "{note}", "note": "a<b"},
			expected: "<name>{note}</name><note>a&lt;b</note>",
		},
		{
			name:     "json braces stay literal",
			template: `{"name":"{name}"}`,
			opts:     []binders.TemplateOption{binders.WithEscaping(binders.EscapeJSON)},
			params:   map[string]interface{}{"name": `say "hi"`},
			expected: `{"name":"say \"hi\""}`,
		},
		{
			name:     "optional placeholder renders empty",
			template: "id={id};tag={tag}",
			opts:     []binders.TemplateOption{binders.WithOptional("tag")},
			params:   map[string]interface{}{"id": 7},
			expected: "id=7;tag=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := newRequest(t)
			err := binders.Template(tt.template, tt.opts...).Bind(req, rest.BindInput{Params: tt.params})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.Payload().String())
		})
	}
}

func TestTemplate_MissingParameter(t *testing.T) {
	t.Parallel()

	err := binders.Template("{a}-{b}").Bind(newRequest(t), rest.BindInput{
		Params: map[string]interface{}{"a": "x"},
	})
	require.Error(t, err)

	var missing *rest.MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "b", missing.Name)
}

func TestForm_MergesExistingForm(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	in := rest.BindInput{
		Params: map[string]interface{}{
			"a": "1 2",
			"c": []string{"x", "y"},
		},
	}

	require.NoError(t, binders.Form("a").Bind(req, in))
	require.NoError(t, binders.Form("b?", "c").Bind(req, in))

	assert.Equal(t, "a=1+2&c=x&c=y", req.Payload().String())
	assert.Equal(t, "application/x-www-form-urlencoded", req.Payload().ContentType)
}

func TestXMLDocument(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	binder := binders.XMLDocument("server",
		binders.Attr("id"),
		binders.Elem("name"),
		binders.Elem("tag").AsOptional(),
		binders.Elem("zone").From("region"),
	)

	err := binder.Bind(req, rest.BindInput{
		Params: map[string]interface{}{
			"id":     7,
			"name":   "a&b",
			"region": []string{"eu", "us"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, `<server id="7"><name>a&amp;b</name><zone>eu</zone><zone>us</zone></server>`, req.Payload().String())
	assert.Equal(t, "application/xml", req.Payload().ContentType)
}

func TestXMLDocument_MultiValuedAttribute(t *testing.T) {
	t.Parallel()

	req := newRequest(t)

	err := binders.XMLDocument("server", binders.Attr("id")).Bind(req, rest.BindInput{
		Params: map[string]interface{}{"id": []string{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `<server id="a b"></server>`, req.Payload().String())

	var doc struct {
		ID string `xml:"id,attr"`
	}

	require.NoError(t, xml.Unmarshal(req.Payload().Bytes(), &doc))
	assert.Equal(t, "a b", doc.ID)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	type server struct {
		Name string `json:"name"`
		Size int    `json:"size,omitempty"`
	}

	d := rest.NewDescriptor("servers.create").
		POST("/servers").
		BodyParam("server").
		Consumes("application/vnd.example+json").
		MustBuild()

	endpoint, err := url.Parse("https://api.example.com")
	require.NoError(t, err)

	req, err := rest.Synthesize(endpoint, d, rest.Args{"server": server{Name: "web"}})
	require.NoError(t, err)

	err = binders.JSON().Bind(req, rest.BindInput{Object: server{Name: "web"}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"name":"web"}`, req.Payload().String())
	assert.Equal(t, "application/vnd.example+json", req.Payload().ContentType)

	err = binders.JSON().Bind(newRequest(t), rest.BindInput{})
	assert.ErrorIs(t, err, rest.ErrMisuse)
}

func TestRaw(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	require.NoError(t, binders.Raw().Bind(req, rest.BindInput{Object: strings.NewReader("stream")}))
	assert.True(t, req.Payload().IsStream())
	assert.Equal(t, int64(-1), req.Payload().ContentLength())

	req = newRequest(t)
	require.NoError(t, binders.Raw().Bind(req, rest.BindInput{Object: []byte("abc")}))
	assert.Equal(t, "abc", req.Payload().String())

	err := binders.Raw().Bind(newRequest(t), rest.BindInput{Object: 42})
	assert.ErrorIs(t, err, rest.ErrMisuse)
}

func TestBinders_RefuseSilentOverwrite(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	in := rest.BindInput{
		Object: map[string]interface{}{"name": "web"},
	}

	require.NoError(t, binders.JSON().Bind(req, in))

	err := binders.KeyValue("name").Bind(req, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, rest.ErrPayloadAlreadySet)
	assert.JSONEq(t, `{"name":"web"}`, req.Payload().String())
}
