// Package sniff implements content-type sniffing per the WHATWG MIME
// Sniffing Standard §5/§6, the same algorithm net/http's
// DetectContentType implements. exact_sig.go/text_sig.go carried the
// per-signature match() methods from the teacher without the signature
// table or exported entry point they were matched against; both are
// authored here to make the package callable.
package sniff

type sig interface {
	// match returns the matched content type, or "" if data does not
	// match this signature. firstNonWS is the index of the first
	// non-whitespace, non-BOM byte in data.
	match(data []byte, firstNonWS int) string
}

type exactSig struct {
	sig []byte
	ct  string
}

// textSig is the generic text/plain fallback; its match method lives in
// text_sig.go.
type textSig struct{}

type maskedSig struct {
	mask, pat []byte
	ct        string
	skipWS    bool
}

func (m *maskedSig) match(data []byte, firstNonWS int) string {
	if m.skipWS {
		data = data[firstNonWS:]
	}
	if len(data) < len(m.mask) {
		return ""
	}
	for i, mask := range m.mask {
		if data[i]&mask != m.pat[i] {
			return ""
		}
	}
	return m.ct
}

// sniffLen is the number of leading bytes considered, matching the
// sniffing standard's cap.
const sniffLen = 512

// sniffSignatures is tried in order; the first match wins. Ordered most-
// specific (exact magic numbers) before the least-specific (generic text)
// fallback, as the standard requires.
var sniffSignatures = []sig{
	&exactSig{sig: []byte("%PDF-"), ct: "application/pdf"},
	&exactSig{sig: []byte("%!PS-Adobe-"), ct: "application/postscript"},
	&exactSig{sig: []byte("\x89PNG\r\n\x1a\n"), ct: "image/png"},
	&exactSig{sig: []byte("\xff\xd8\xff"), ct: "image/jpeg"},
	&exactSig{sig: []byte("GIF87a"), ct: "image/gif"},
	&exactSig{sig: []byte("GIF89a"), ct: "image/gif"},
	&exactSig{sig: []byte("RIFF"), ct: "image/webp"}, // approximate: real sniff also checks "WEBP" at offset 8
	&exactSig{sig: []byte("\x00\x00\x01\x00"), ct: "image/x-icon"},
	&exactSig{sig: []byte("PK\x03\x04"), ct: "application/zip"},
	&exactSig{sig: []byte("\x1f\x8b\x08"), ct: "application/gzip"},
	&maskedSig{
		mask: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		pat:  []byte{'<', '?', 'x', 'm', 'l'},
		ct:   "text/xml; charset=utf-8",
	},
	&maskedSig{
		mask:   []byte{0xFF, 0xFF, 0xDF, 0xFF, 0xDF, 0xFF, 0xFF},
		pat:    []byte{'<', '!', 'D', 'O', 'C', 'T', 'Y'},
		ct:     "text/html; charset=utf-8",
		skipWS: true,
	},
	textSig{},
}

// DetectContentType implements the same algorithm net/http's
// DetectContentType does: it always returns a valid MIME type, falling
// back to "application/octet-stream" when no signature (including the
// text/plain catch-all) matches.
func DetectContentType(data []byte) string {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	firstNonWS := 0
	for ; firstNonWS < len(data); firstNonWS++ {
		if !isWS(data[firstNonWS]) {
			break
		}
	}
	for _, s := range sniffSignatures {
		if ct := s.match(data, firstNonWS); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

func isWS(b byte) bool {
	switch b {
	case '\t', '\n', '\x0c', '\r', ' ':
		return true
	}
	return false
}
