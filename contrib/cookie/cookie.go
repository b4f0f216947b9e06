// Package cookie implements request Cookie-header parsing and
// Set-Cookie response writing, adapted from the teacher's client-side
// cookie jar (cli package) down to just the parts a server needs: reading
// the cookies a client sent, and writing new ones back.
package cookie

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crowgo/crow/hdr"
)

// SameSite is the Set-Cookie SameSite attribute.
type SameSite int

const (
	SameSiteDefault SameSite = iota
	SameSiteLax
	SameSiteStrict
	SameSiteNone
)

// Cookie represents one HTTP cookie, as sent by a client (Name/Value only)
// or set by a handler (every field).
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite SameSite
}

// String renders c as a Set-Cookie header value.
func (c *Cookie) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", sanitizeToken(c.Name), sanitizeValue(c.Value))
	if c.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", sanitizeValue(c.Path))
	}
	if c.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", sanitizeValue(c.Domain))
	}
	if !c.Expires.IsZero() {
		fmt.Fprintf(&b, "; Expires=%s", c.Expires.UTC().Format(hdr.TimeFormat))
	}
	if c.MaxAge > 0 {
		fmt.Fprintf(&b, "; Max-Age=%d", c.MaxAge)
	} else if c.MaxAge < 0 {
		b.WriteString("; Max-Age=0")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	switch c.SameSite {
	case SameSiteLax:
		b.WriteString("; SameSite=Lax")
	case SameSiteStrict:
		b.WriteString("; SameSite=Strict")
	case SameSiteNone:
		b.WriteString("; SameSite=None")
	}
	return b.String()
}

// ParseRequestCookies extracts the cookies a client sent in its Cookie
// header(s). Malformed pairs are skipped rather than aborting the whole
// parse, matching browsers' own lenient behavior.
func ParseRequestCookies(h hdr.Header) []*Cookie {
	var out []*Cookie
	for _, line := range h.Values(hdr.CookieHeader) {
		for _, part := range strings.Split(line, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			i := strings.IndexByte(part, '=')
			if i < 0 {
				continue
			}
			name := strings.TrimSpace(part[:i])
			value := strings.TrimSpace(part[i+1:])
			if !validToken(name) {
				continue
			}
			value, ok := unquote(value)
			if !ok {
				continue
			}
			out = append(out, &Cookie{Name: name, Value: value})
		}
	}
	return out
}

func unquote(v string) (string, bool) {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	for i := 0; i < len(v); i++ {
		if !validCookieValueByte(v[i]) {
			return "", false
		}
	}
	return v, true
}

func validCookieValueByte(b byte) bool {
	return 0x20 <= b && b < 0x7f && b != '"' && b != ';' && b != '\\'
}

func validToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !hdr.IsTokenRune(rune(s[i])) {
			return false
		}
	}
	return true
}

func sanitizeToken(s string) string { return s }

func sanitizeValue(s string) string {
	if strings.ContainsAny(s, " ,;") {
		return strconv.Quote(s)
	}
	return s
}
