package parser

import (
	"fmt"
	"strconv"

	"github.com/crowgo/crow/hdr"
)

// validMethodByte mirrors RFC 7230's token grammar, reused here instead of
// importing hdr's table directly so the method/URL scanners stay
// self-contained and allocation-free.
func validMethodByte(b byte) bool {
	switch {
	case 'A' <= b && b <= 'Z':
		return true
	case 'a' <= b && b <= 'z':
		return true
	case '0' <= b && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// knownMethods is the set of methods the router can dispatch on; any other
// token is rejected at parse time rather than silently routed to a 404.
var knownMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"CONNECT": true, "OPTIONS": true, "TRACE": true, "PATCH": true,
}

// parseRequestLine parses "METHOD SP request-target SP HTTP-Version" per
// RFC 7230 §3.1.1.
func parseRequestLine(line []byte) (*Request, error) {
	sp1 := indexByte(line, ' ')
	if sp1 < 0 {
		return nil, fmt.Errorf("parser: malformed request line")
	}
	method := string(line[:sp1])
	for i := 0; i < len(method); i++ {
		if !validMethodByte(method[i]) {
			return nil, fmt.Errorf("parser: invalid method token %q", method)
		}
	}
	if !knownMethods[method] {
		return nil, fmt.Errorf("parser: unknown method %q", method)
	}

	rest := line[sp1+1:]
	sp2 := indexByte(rest, ' ')
	if sp2 < 0 {
		return nil, fmt.Errorf("parser: malformed request line")
	}
	target := string(rest[:sp2])
	if target == "" || !validTarget(target) {
		return nil, fmt.Errorf("parser: invalid request target %q", target)
	}

	versionStr := string(rest[sp2+1:])
	major, minor, err := parseHTTPVersion(versionStr)
	if err != nil {
		return nil, err
	}

	path, rawQuery := target, ""
	if target[0] != '*' {
		if i := indexByteStr(target, '?'); i >= 0 {
			path, rawQuery = target[:i], target[i+1:]
		}
	}

	return &Request{
		Method:   method,
		Target:   target,
		Path:     path,
		RawQuery: rawQuery,
		Major:    major,
		Minor:    minor,
		Header:   hdr.MakeSize(16),
	}, nil
}

// validTarget enforces that the request target contains only bytes legal
// in an RFC 3986 request-target: no control characters or raw whitespace,
// which a lenient parser would otherwise happily hand to the router.
func validTarget(target string) bool {
	if target == "*" {
		return true
	}
	for i := 0; i < len(target); i++ {
		b := target[i]
		if b <= 0x20 || b == 0x7f {
			return false
		}
	}
	return true
}

func parseHTTPVersion(s string) (major, minor int, err error) {
	const prefix = "HTTP/"
	if len(s) != len(prefix)+3 || s[:len(prefix)] != prefix || s[len(prefix)+1] != '.' {
		return 0, 0, fmt.Errorf("parser: malformed HTTP version %q", s)
	}
	maj, err := strconv.Atoi(string(s[len(prefix)]))
	if err != nil {
		return 0, 0, fmt.Errorf("parser: malformed HTTP version %q", s)
	}
	min, err := strconv.Atoi(string(s[len(prefix)+2]))
	if err != nil {
		return 0, 0, fmt.Errorf("parser: malformed HTTP version %q", s)
	}
	if maj != 1 {
		return 0, 0, fmt.Errorf("parser: unsupported HTTP version %q", s)
	}
	return maj, min, nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func indexByteStr(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

// shouldClose applies HTTP/1.0 vs HTTP/1.1 keep-alive defaults: 1.1
// defaults to keep-alive unless "Connection: close" is present; 1.0
// defaults to close unless "Connection: keep-alive" is present.
func shouldClose(major, minor int, connHeader string) bool {
	hasClose := isTokenEqualFold(connHeader, "close")
	hasKeepAlive := isTokenEqualFold(connHeader, "keep-alive")
	if minor >= 1 {
		return hasClose
	}
	return !hasKeepAlive
}

// isTokenEqualFold reports whether header value v contains token tok
// (case-insensitively) among its comma-separated items, as Connection and
// Transfer-Encoding values do.
func isTokenEqualFold(v, tok string) bool {
	for _, item := range splitComma(v) {
		if equalFold(trimOWS(item), tok) {
			return true
		}
	}
	return false
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func trimOWS(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func parseContentLength(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("parser: invalid Content-Length %q", s)
	}
	return n, nil
}
