package rest

import (
	"bytes"
	"io"
)

// Payload is a request body together with its media type. Byte payloads are
// replayable; stream payloads can be read once.
type Payload struct {
	ContentType string

	data   []byte
	stream io.Reader
	length int64
}

// BytesPayload creates a replayable payload.
func BytesPayload(contentType string, data []byte) *Payload {
	return &Payload{
		ContentType: contentType,
		data:        data,
		length:      int64(len(data)),
	}
}

// StringPayload creates a replayable payload from text.
func StringPayload(contentType, text string) *Payload {
	return BytesPayload(contentType, []byte(text))
}

// StreamPayload creates a one-shot payload. length may be -1 when unknown.
func StreamPayload(contentType string, stream io.Reader, length int64) *Payload {
	return &Payload{
		ContentType: contentType,
		stream:      stream,
		length:      length,
	}
}

// Bytes returns the payload content, or nil for stream payloads.
func (p *Payload) Bytes() []byte {
	return p.data
}

// IsStream reports whether the payload wraps a one-shot reader.
func (p *Payload) IsStream() bool {
	return p.stream != nil
}

// ContentLength returns the length in bytes, -1 when unknown.
func (p *Payload) ContentLength() int64 {
	return p.length
}

// Reader returns a reader over the payload. Byte payloads return a fresh
// reader on every call.
func (p *Payload) Reader() io.Reader {
	if p.stream != nil {
		return p.stream
	}

	return bytes.NewReader(p.data)
}

// String returns the textual content of byte payloads.
func (p *Payload) String() string {
	if p.stream != nil {
		return "<stream>"
	}

	return string(p.data)
}
