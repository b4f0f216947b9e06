package crow_test

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/internal/testutil"
)

func TestEndToEndTypedRoute(t *testing.T) {
	app := crow.New()
	_, err := app.Route("GET", "/widgets/<int:id>", func(req *crow.Request, w crow.ResponseWriter) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(200)
		fmt.Fprintf(w, "widget %s", req.Param("id"))
	})
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/widgets/9")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "widget 9", string(body))
}

func TestEndToEndMethodNotAllowed(t *testing.T) {
	app := crow.New()
	_, err := app.Route("POST", "/widgets", func(req *crow.Request, w crow.ResponseWriter) {
		w.WriteHeader(200)
	})
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/widgets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 405, resp.StatusCode)
	require.Equal(t, "POST", resp.Header.Get("Allow"))
}

func TestEndToEndNotFound(t *testing.T) {
	app := crow.New()
	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 404, resp.StatusCode)
}

func TestEndToEndAutoOptions(t *testing.T) {
	app := crow.New()
	_, err := app.Route("GET", "/widgets", func(req *crow.Request, w crow.ResponseWriter) { w.WriteHeader(200) })
	require.NoError(t, err)
	_, err = app.Route("POST", "/widgets", func(req *crow.Request, w crow.ResponseWriter) { w.WriteHeader(200) })
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	req, _ := http.NewRequest("OPTIONS", srv.URL+"/widgets", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 204, resp.StatusCode)
	require.ElementsMatch(t, []string{"GET", "POST"}, resp.Header.Values("Allow"))
}

func TestEndToEndLargeBodyStillUsesContentLength(t *testing.T) {
	app := crow.New()
	app.StreamThreshold = 2048 // force the write-batching path without a 1MiB body
	big := make([]byte, 4096)
	for i := range big {
		big[i] = 'x'
	}
	_, err := app.Route("GET", "/big", func(req *crow.Request, w crow.ResponseWriter) {
		w.WriteHeader(200)
		_, _ = w.Write(big)
	})
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/big")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, 200, resp.StatusCode)
	require.Len(t, body, len(big))
	require.Empty(t, resp.TransferEncoding)
	require.Equal(t, fmt.Sprintf("%d", len(big)), resp.Header.Get("Content-Length"))
}

func TestMiddlewareOrder(t *testing.T) {
	app := crow.New()
	var order []string
	app.Use(orderMiddleware{name: "outer", log: &order})
	app.Use(orderMiddleware{name: "inner", log: &order})
	_, err := app.Route("GET", "/", func(req *crow.Request, w crow.ResponseWriter) {
		order = append(order, "handler")
		w.WriteHeader(200)
	})
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{"outer-before", "inner-before", "handler", "inner-after", "outer-after"}, order)
}

type orderMiddleware struct {
	name string
	log  *[]string
}

func (m orderMiddleware) Before(req *crow.Request, w crow.ResponseWriter) (any, bool) {
	*m.log = append(*m.log, m.name+"-before")
	return nil, true
}

func (m orderMiddleware) After(req *crow.Request, w crow.ResponseWriter, ctxVal any) {
	*m.log = append(*m.log, m.name+"-after")
}
