// Package parsers provides the response parser strategies: release the
// body, plain text lines, key/value records, and typed JSON or XML decoding.
package parsers
