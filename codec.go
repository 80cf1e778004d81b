package kestrel

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Decoder is the capability a `RequestContext` uses to parse a request
// body into a Go value; concrete implementations are selected by
// Content-Type, generalizing the teacher's `binder.go` dispatch.
type Decoder interface {
	Decode(data []byte, v interface{}) error
}

// Encoder is the capability a `RequestContext` uses to render a Go value
// into response bytes; concrete implementations are selected by the
// request's Accept header or an explicit override.
type Encoder interface {
	Encode(v interface{}) ([]byte, error)
	ContentType() string
}

type jsonCodec struct{}

func (jsonCodec) Decode(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Encode(v interface{}) ([]byte, error)    { return json.Marshal(v) }
func (jsonCodec) ContentType() string                     { return "application/json; charset=utf-8" }

type xmlCodec struct{}

func (xmlCodec) Decode(data []byte, v interface{}) error { return xml.Unmarshal(data, v) }
func (xmlCodec) Encode(v interface{}) ([]byte, error)    { return xml.Marshal(v) }
func (xmlCodec) ContentType() string                     { return "application/xml; charset=utf-8" }

type msgpackCodec struct{}

func (msgpackCodec) Decode(data []byte, v interface{}) error { return msgpack.Unmarshal(data, v) }
func (msgpackCodec) Encode(v interface{}) ([]byte, error)    { return msgpack.Marshal(v) }
func (msgpackCodec) ContentType() string                     { return "application/msgpack" }

type tomlCodec struct{}

func (tomlCodec) Decode(data []byte, v interface{}) error {
	return toml.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (tomlCodec) Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (tomlCodec) ContentType() string { return "application/toml" }

type yamlCodec struct{}

func (yamlCodec) Decode(data []byte, v interface{}) error { return yaml.Unmarshal(data, v) }
func (yamlCodec) Encode(v interface{}) ([]byte, error)    { return yaml.Marshal(v) }
func (yamlCodec) ContentType() string                     { return "application/yaml" }

// CodecRegistry maps a MIME type (ignoring parameters, e.g. the
// "; charset=..." suffix) to the `Decoder`/`Encoder` pair that handles it.
// `Application` owns one, pre-populated with the defaults below; user code
// may register additional codecs or replace the defaults.
type CodecRegistry struct {
	entries map[string]codecEntry
}

type codecEntry struct {
	decoder Decoder
	encoder Encoder
}

// NewCodecRegistry returns a `CodecRegistry` pre-populated with the default
// json/xml/msgpack/toml/yaml codecs.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{entries: map[string]codecEntry{}}

	r.Register("application/json", jsonCodec{}, jsonCodec{})
	r.Register("application/xml", xmlCodec{}, xmlCodec{})
	r.Register("application/msgpack", msgpackCodec{}, msgpackCodec{})
	r.Register("application/toml", tomlCodec{}, tomlCodec{})
	r.Register("application/yaml", yamlCodec{}, yamlCodec{})

	return r
}

// Register associates mediaType with the given decoder/encoder pair,
// either of which may be nil to leave the other side untouched.
func (r *CodecRegistry) Register(mediaType string, d Decoder, e Encoder) {
	entry := r.entries[mediaType]
	if d != nil {
		entry.decoder = d
	}

	if e != nil {
		entry.encoder = e
	}

	r.entries[mediaType] = entry
}

// Decoder returns the `Decoder` registered for contentType, stripping any
// "; charset=..." parameter before lookup. It returns nil if none matches.
func (r *CodecRegistry) Decoder(contentType string) Decoder {
	entry, ok := r.entries[mediaTypeOf(contentType)]
	if !ok {
		return nil
	}

	return entry.decoder
}

// Encoder returns the `Encoder` registered for mediaType. It returns nil if
// none matches.
func (r *CodecRegistry) Encoder(mediaType string) Encoder {
	entry, ok := r.entries[mediaTypeOf(mediaType)]
	if !ok {
		return nil
	}

	return entry.encoder
}

// mediaTypeOf strips parameters from a Content-Type/Accept header value and
// lowercases it, e.g. "application/json; charset=utf-8" -> "application/json".
func mediaTypeOf(headerValue string) string {
	if i := strings.IndexByte(headerValue, ';'); i >= 0 {
		headerValue = headerValue[:i]
	}

	return strings.ToLower(strings.TrimSpace(headerValue))
}
