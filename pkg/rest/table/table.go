// Package table declares descriptors in YAML instead of Go code.
//
// A table lists methods:
//
//	methods:
//	  - id: servers.create
//	    verb: POST
//	    path: /zones/{zone}/servers
//	    accepts: [application/json]
//	    params:
//	      - {name: server, in: body, required: true}
//	    bind:
//	      - kind: json
//	    parser: {kind: json}
//	    fallback: propagate
//
// Binder, parser and fallback kinds map onto the strategies of the binders,
// parsers and fallbacks packages. Filters are referenced by name.
package table

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// Static errors for err113 compliance.
var (
	ErrInvalidTable  = errors.New("invalid descriptor table")
	ErrUnknownFilter = errors.New("unknown filter")
)

// Table is a decoded descriptor table.
type Table struct {
	Methods []Method `yaml:"methods" validate:"required,min=1,unique=ID,dive"`
}

// Method declares one descriptor.
type Method struct {
	ID          string        `yaml:"id"           validate:"required"`
	Verb        string        `yaml:"verb"         validate:"omitempty,oneof=GET POST PUT PATCH DELETE HEAD get post put patch delete head"`
	Path        string        `yaml:"path"         validate:"required,startswith=/"`
	Headers     []Header      `yaml:"headers"      validate:"dive"`
	Query       []Query       `yaml:"query"        validate:"dive"`
	Params      []Param       `yaml:"params"       validate:"dive"`
	Bind        []Binding     `yaml:"bind"         validate:"dive"`
	Parser      Parser        `yaml:"parser"`
	Fallback    string        `yaml:"fallback"     validate:"omitempty,oneof=propagate null_on_not_found void_on_not_found empty_on_not_found false_on_not_found_or_422 translate retry_on_transport retry_on_status"`
	RetryStatus []int         `yaml:"retry_status" validate:"required_if=Fallback retry_on_status,dive,min=100,max=599"`
	Filters     []string      `yaml:"filters"`
	Consumes    string        `yaml:"consumes"`
	Accepts     []string      `yaml:"accepts"`
	CacheTTL    time.Duration `yaml:"cache_ttl"    validate:"min=0"`
}

// Header is a static header. Headers are a list so their order and casing
// survive decoding.
type Header struct {
	Name  string `yaml:"name"  validate:"required"`
	Value string `yaml:"value"`
}

// Query is a static query parameter.
type Query struct {
	Key    string   `yaml:"key"    validate:"required"`
	Values []string `yaml:"values"`
}

// Param declares an argument.
type Param struct {
	Name     string `yaml:"name"      validate:"required"`
	In       string `yaml:"in"        validate:"omitempty,oneof=path query header body payload"`
	Required bool   `yaml:"required"`
	WireName string `yaml:"wire_name"`
}

// Binding selects a binder.
type Binding struct {
	Kind        string   `yaml:"kind"         validate:"required,oneof=json xml raw keyvalue form template xml_document"`
	Fields      []string `yaml:"fields"`
	Template    string   `yaml:"template"     validate:"required_if=Kind template"`
	Escaping    string   `yaml:"escaping"     validate:"omitempty,oneof=none xml json"`
	ContentType string   `yaml:"content_type"`
	Root        string   `yaml:"root"         validate:"required_if=Kind xml_document"`
}

// Parser selects a response parser.
type Parser struct {
	Kind  string   `yaml:"kind"  validate:"omitempty,oneof=release bool string lines lines_field keyvalue json json_field"`
	Field int      `yaml:"field" validate:"min=0"`
	Path  []string `yaml:"path"  validate:"required_if=Kind json_field"`
}

// Parse decodes and validates a table. Unknown keys are rejected.
func Parse(data []byte) (*Table, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var table Table

	err := decoder.Decode(&table)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}

	err = validateTable(&table)
	if err != nil {
		return nil, err
	}

	return &table, nil
}

// Load reads and parses a table file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading descriptor table: %w", err)
	}

	return Parse(data)
}

// IDs returns the method IDs in table order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.Methods))
	for _, method := range t.Methods {
		ids = append(ids, method.ID)
	}

	return ids
}

// Descriptors builds every method.
func (t *Table) Descriptors(opts ...Option) ([]*rest.Descriptor, error) {
	resolver := newResolver(opts)
	descriptors := make([]*rest.Descriptor, 0, len(t.Methods))

	var errs []error

	for _, method := range t.Methods {
		d, err := resolver.build(method)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		descriptors = append(descriptors, d)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return descriptors, nil
}

// Register declares every method in registry. Descriptors are built lazily
// on first lookup.
func (t *Table) Register(registry *rest.Registry, opts ...Option) {
	resolver := newResolver(opts)

	for _, method := range t.Methods {
		registry.Register(method.ID, func() (*rest.Descriptor, error) {
			return resolver.build(method)
		})
	}
}
