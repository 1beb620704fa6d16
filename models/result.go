package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf16"
)

// ScrapeResult is the document printed on success.
type ScrapeResult struct {
	// H2Tags holds the trimmed heading texts in document order.
	H2Tags []string `json:"h2_tags"`
}

// EncodeResult renders r as a single-line JSON object using ", " and ": "
// separators, with every non-ASCII rune escaped as \uXXXX. A nil H2Tags is
// written as an empty array.
func EncodeResult(r ScrapeResult) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"h2_tags": [`)
	for i, tag := range r.H2Tags {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := writeASCIIString(&buf, tag); err != nil {
			return "", fmt.Errorf("encode h2 tag %d: %w", i, err)
		}
	}
	buf.WriteString("]}")
	return buf.String(), nil
}

func writeASCIIString(buf *bytes.Buffer, s string) error {
	var quoted bytes.Buffer
	enc := json.NewEncoder(&quoted)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder appends a newline.
	out := bytes.TrimSuffix(quoted.Bytes(), []byte("\n"))

	for _, r := range string(out) {
		if r < 0x80 {
			buf.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(buf, `\u%04x`, r)
	}
	return nil
}
