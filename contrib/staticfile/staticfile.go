// Package staticfile serves files from a directory, adapted from the
// teacher's filetransport package (itself a 'file://' RoundTripper) down
// to a plain handler: open, stat, content-type, conditional GET, a single
// byte range, stream.
package staticfile

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/hdr"
	"github.com/crowgo/crow/sniff"
)

// Dir restricts file access to a directory tree, the same shape the
// teacher's Dir/FileSystem pair used, trimmed to what a server-side
// handler needs (no io.Seeker abstraction over arbitrary backends — just
// the native filesystem).
type Dir string

func (d Dir) open(name string) (*os.File, os.FileInfo, error) {
	full := filepath.Join(string(d), filepath.FromSlash(path.Clean("/"+name)))
	f, err := os.Open(full)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, fi, nil
}

// Handler returns a crow.HandlerFunc serving files under root, with the
// matched route's "path"-kind parameter (named paramName) as the
// requested file path relative to root.
func Handler(root Dir, paramName string) crow.HandlerFunc {
	return func(req *crow.Request, w crow.ResponseWriter) {
		Serve(w, req, root, req.Param(paramName))
	}
}

// Serve serves the single file at name (relative to root) as the response
// to req.
func Serve(w crow.ResponseWriter, req *crow.Request, root Dir, name string) {
	if strings.Contains(name, "..") {
		w.WriteHeader(400)
		_, _ = w.Write([]byte("Bad Request"))
		return
	}
	f, fi, err := root.open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.WriteHeader(404)
			_, _ = w.Write([]byte("Not Found"))
			return
		}
		w.WriteHeader(500)
		_, _ = w.Write([]byte("Internal Server Error"))
		return
	}
	defer f.Close()

	if fi.IsDir() {
		w.WriteHeader(403)
		_, _ = w.Write([]byte("Forbidden"))
		return
	}

	modTime := fi.ModTime().UTC().Format(hdr.TimeFormat)
	if ifMod := req.Header.Get(hdr.IfModifiedSince); ifMod != "" && ifMod == modTime {
		w.WriteHeader(304)
		return
	}
	w.Header().Set(hdr.LastModified, modTime)
	w.Header().Set(hdr.AcceptRanges, "bytes")

	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = sniffFile(f)
	}
	w.Header().Set(hdr.ContentType, ct)

	size := fi.Size()
	start, length, isRange := parseRange(req.Header.Get("Range"), size)
	if isRange {
		w.Header().Set(hdr.ContentRange, fmt.Sprintf("bytes %d-%d/%d", start, start+length-1, size))
		w.WriteHeader(206)
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			return
		}
		_, _ = io.CopyN(w, f, length)
		return
	}

	w.WriteHeader(200)
	_, _ = io.Copy(w, f)
}

func sniffFile(f *os.File) string {
	var buf [512]byte
	n, _ := f.ReadAt(buf[:], 0)
	return sniff.DetectContentType(buf[:n])
}

// parseRange handles a single "bytes=start-end" range, matching the
// common case; multi-range requests fall back to a full 200 response
// (ok=false) rather than a multipart/byteranges body.
func parseRange(header string, size int64) (start, length int64, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false
	}
	spec := header[len(prefix):]
	if strings.Contains(spec, ",") {
		return 0, 0, false
	}
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0, 0, false
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	if startStr == "" {
		// suffix range: last N bytes
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, n, true
	}
	s, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || s < 0 || s >= size {
		return 0, 0, false
	}
	e := size - 1
	if endStr != "" {
		e, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || e < s {
			return 0, 0, false
		}
		if e >= size {
			e = size - 1
		}
	}
	return s, e - s + 1, true
}
