package sanitize

import (
	"bytes"
	"encoding/json"
	"strings"
)

var jsonLDEscaper = strings.NewReplacer(
	"<", `\u003c`,
	">", `\u003e`,
	"&", `\u0026`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// JSONLD serializes v for embedding in a <script type="application/ld+json">
// element. Characters that could close the script element or break a
// JavaScript string are replaced with unicode escapes after serialization,
// so the escaping never touches structure the encoder produced and the
// output still decodes to the original value.
//
// Apply it exactly once, immediately before embedding.
func JSONLD(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return jsonLDEscaper.Replace(strings.TrimSuffix(buf.String(), "\n")), nil
}

// MustJSONLD is like JSONLD but panics on error. Use it for static data known
// to be serializable.
func MustJSONLD(v any) string {
	s, err := JSONLD(v)
	if err != nil {
		panic("sanitize: " + err.Error())
	}
	return s
}
