package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/hdr"
)

func TestRouteLabelRoundTrip(t *testing.T) {
	req := &crow.Request{Method: "GET"}
	require.Equal(t, "unmatched", RouteOf(req))

	RouteLabel(req, "/widgets/<int:id>")
	require.Equal(t, "/widgets/<int:id>", RouteOf(req))
}

func TestCollectorCountsRequests(t *testing.T) {
	c := New()
	req := &crow.Request{Method: "GET"}
	RouteLabel(req, "/ping")
	w := &fakeResponseWriter{status: 200}

	ctxVal, cont := c.Before(req, w)
	require.True(t, cont)
	c.After(req, w, ctxVal)

	count := testutil.ToFloat64(c.requests.WithLabelValues("GET", "/ping", "200"))
	require.Equal(t, float64(1), count)
}

// fakeResponseWriter is a minimal crow.ResponseWriter for exercising
// Collector without a real connection.
type fakeResponseWriter struct {
	status int
	header hdr.Header
}

func (f *fakeResponseWriter) Header() *hdr.Header     { return &f.header }
func (f *fakeResponseWriter) WriteHeader(status int)  { f.status = status }
func (f *fakeResponseWriter) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeResponseWriter) Defer() crow.Responder   { return nil }
func (f *fakeResponseWriter) Status() int             { return f.status }
