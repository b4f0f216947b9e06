package staticfile

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/internal/testutil"
)

func TestParseRangeFull(t *testing.T) {
	start, length, ok := parseRange("", 100)
	require.False(t, ok)
	require.Zero(t, start)
	require.Zero(t, length)
}

func TestParseRangeBounded(t *testing.T) {
	start, length, ok := parseRange("bytes=10-19", 100)
	require.True(t, ok)
	require.EqualValues(t, 10, start)
	require.EqualValues(t, 10, length)
}

func TestParseRangeSuffix(t *testing.T) {
	start, length, ok := parseRange("bytes=-5", 100)
	require.True(t, ok)
	require.EqualValues(t, 95, start)
	require.EqualValues(t, 5, length)
}

func TestParseRangeMultiFallsBackToFull(t *testing.T) {
	_, _, ok := parseRange("bytes=0-1,2-3", 100)
	require.False(t, ok)
}

func TestServeFileEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world"), 0o644))

	app := crow.New()
	_, err := app.Route("GET", "/static/<path:file>", Handler(Dir(dir), "file"))
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/static/hello.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
}

func TestServeMissingFile(t *testing.T) {
	dir := t.TempDir()
	app := crow.New()
	_, err := app.Route("GET", "/static/<path:file>", Handler(Dir(dir), "file"))
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/static/nope.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 404, resp.StatusCode)
}

func TestServeRejectsDotDot(t *testing.T) {
	dir := t.TempDir()
	app := crow.New()
	_, err := app.Route("GET", "/static/<path:file>", Handler(Dir(dir), "file"))
	require.NoError(t, err)

	srv := testutil.NewServer(app)
	defer srv.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/static/../secret.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 400, resp.StatusCode)
}
