package compress

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/internal/testutil"
)

func TestWrapGzipsWhenAccepted(t *testing.T) {
	app := crow.New()
	payload := strings.Repeat("hello world ", 200)
	_, err := app.Route("GET", "/text", Wrap(func(req *crow.Request, w crow.ResponseWriter) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(payload))
	}))
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	req, _ := http.NewRequest("GET", srv.URL+"/text", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	gr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	defer gr.Close()
	decoded, err := io.ReadAll(gr)
	require.NoError(t, err)
	require.Equal(t, payload, string(decoded))
}

func TestWrapPassesThroughWithoutAcceptEncoding(t *testing.T) {
	app := crow.New()
	_, err := app.Route("GET", "/text", Wrap(func(req *crow.Request, w crow.ResponseWriter) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("plain"))
	}))
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	req, _ := http.NewRequest("GET", srv.URL+"/text", nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Empty(t, resp.Header.Get("Content-Encoding"))
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "plain", string(body))
}
