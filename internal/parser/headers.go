package parser

import (
	"fmt"

	"github.com/crowgo/crow/hdr"
)

// addHeaderLine parses one "Name: value" header line (obs-fold already
// resolved by the caller's line splitting is NOT supported — a
// continuation line is rejected, matching modern HTTP/1.1 guidance
// against obs-fold) and adds it to h.
func addHeaderLine(h *hdr.Header, line []byte) error {
	if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		return fmt.Errorf("parser: obsolete line folding is not supported")
	}
	colon := indexByte(line, ':')
	if colon <= 0 {
		return fmt.Errorf("parser: malformed header line %q", string(line))
	}
	name := string(line[:colon])
	if !hdr.ValidHeaderFieldName(name) {
		return fmt.Errorf("parser: invalid header field name %q", name)
	}
	value := hdr.TrimString(string(line[colon+1:]))
	if !hdr.ValidHeaderFieldValue(value) {
		return fmt.Errorf("parser: invalid header field value for %q", name)
	}
	h.Add(name, value)
	return nil
}
