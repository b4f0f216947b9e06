package crow

import (
	"crypto/tls"
	"net"
	"os"
	"os/signal"
	"syscall"
)

// Server accepts TCP or Unix-domain connections and hands each one to
// App.dispatch via a bounded worker pool.
type Server struct {
	Addr    string
	App     *App
	Workers int // number of pool workers; defaults to 8 if <= 0

	// LocalSocketPath, if set, makes ListenAndServe listen on a Unix
	// domain socket at this path instead of a TCP address; Addr is
	// ignored when this is set. Matches local_socket_path.
	LocalSocketPath string

	// TLSConfig, if set, makes ListenAndServe wrap the listener with TLS
	// (ssl_file/ssl_chainfile/ssl(ctx)). App.TLSConfig is used as a
	// fallback when this is nil.
	TLSConfig *tls.Config

	// Signals lists the OS signals that trigger RunUntilSignal's
	// graceful shutdown. Nil defaults to SIGINT and SIGTERM
	// (signal_clear/signal_add).
	Signals []os.Signal

	listener net.Listener
	pool     *workerPool
}

// ListenAndServe listens on s.LocalSocketPath (if set) or s.Addr (":8080"
// if both are empty) and serves until the listener errors or Shutdown is
// called. If a TLS configuration is set on the Server or its App, the
// listener is wrapped for TLS termination.
func (s *Server) ListenAndServe() error {
	var (
		ln  net.Listener
		err error
	)
	if s.LocalSocketPath != "" {
		_ = os.Remove(s.LocalSocketPath) // a stale socket file from a previous run would block bind
		ln, err = net.Listen("unix", s.LocalSocketPath)
	} else {
		addr := s.Addr
		if addr == "" {
			addr = ":8080"
		}
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return err
	}

	if cfg := s.tlsConfig(); cfg != nil {
		ln = tls.NewListener(ln, cfg)
	}
	return s.Serve(ln)
}

func (s *Server) tlsConfig() *tls.Config {
	if s.TLSConfig != nil {
		return s.TLSConfig
	}
	if s.App != nil {
		return s.App.TLSConfig
	}
	return nil
}

// Serve accepts connections from ln until it errors (including from a
// concurrent Shutdown closing it).
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	workers := s.Workers
	if workers <= 0 {
		workers = 8
	}
	s.pool = newWorkerPool(workers, s.App)
	defer s.pool.stop()

	s.App.Logger.Infof("crow: listening on %s", ln.Addr())
	for {
		rwc, err := ln.Accept()
		if err != nil {
			return err
		}
		s.pool.dispatch(rwc)
	}
}

// Shutdown closes the listener, causing Serve to return once every
// connection already accepted has been served until it closed.
func (s *Server) Shutdown() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// RunUntilSignal is a convenience entry point for cmd/crowd-style
// binaries: it calls ListenAndServe in a goroutine and blocks until one of
// s.Signals fires (SIGINT and SIGTERM if s.Signals is nil), then shuts
// down gracefully.
func (s *Server) RunUntilSignal() error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()

	sigs := s.Signals
	if sigs == nil {
		sigs = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.App.Logger.Infof("crow: received %s, shutting down", sig)
		_ = s.Shutdown()
		return <-errCh
	}
}
