// Command crowd is a small example server built on the crow package: it
// loads a YAML config (optionally overridden by flags), wires a handful
// of demonstration routes including a WebSocket echo endpoint, and serves
// until one of its configured shutdown signals arrives.
package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/contrib/compress"
	"github.com/crowgo/crow/contrib/cookie"
	"github.com/crowgo/crow/contrib/staticfile"
	"github.com/crowgo/crow/metrics"
	"github.com/crowgo/crow/ws"
)

func main() {
	var configPath string
	var addr string
	var workers int
	flag.StringVar(&configPath, "config", "", "path to a crowd.yaml config file")
	flag.StringVar(&addr, "addr", "", "listen address (overrides config)")
	flag.IntVar(&workers, "workers", 0, "worker pool size (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "crowd: loading config:", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if workers != 0 {
		cfg.Workers = workers
	}

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	app := crow.New()
	app.Logger = logger
	app.IdleTimeout = cfg.IdleTimeout
	app.MaxHeaderBytes = cfg.MaxHeaderBytes
	app.ServerHeaderName = cfg.ServerName
	app.StreamThreshold = cfg.StreamThreshold
	app.WebSocketMaxPayload = cfg.WebSocketMaxPayload

	if cfg.SSLFile != "" && cfg.SSLChainfile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.SSLFile, cfg.SSLChainfile)
		if err != nil {
			logger.Fatalf("crowd: loading TLS certificate: %v", err)
		}
		app.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	app.Use(&cookie.Middleware{})

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		app.Use(collector)
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	if cfg.TickSeconds > 0 {
		app.Tick(time.Duration(cfg.TickSeconds)*time.Second, func() {
			logger.Debug("crowd: tick")
		})
	}

	registerRoutes(app, cfg)

	srv := &crow.Server{
		Addr:            cfg.Addr,
		LocalSocketPath: cfg.LocalSocketPath,
		App:             app,
		Workers:         cfg.Workers,
		Signals:         signalsFromConfig(cfg.Signals),
	}
	logger.Infof("crowd: starting on %s (workers=%d)", cfg.Addr, cfg.Workers)
	if err := srv.RunUntilSignal(); err != nil {
		logger.Fatalf("crowd: %v", err)
	}
	app.Close()
}

func signalsFromConfig(nums []int) []os.Signal {
	if len(nums) == 0 {
		return nil // Server defaults to SIGINT, SIGTERM
	}
	out := make([]os.Signal, len(nums))
	for i, n := range nums {
		out[i] = syscall.Signal(n)
	}
	return out
}

func registerRoutes(app *crow.App, cfg Config) {
	must := func(_ any, err error) {
		if err != nil {
			app.Logger.Fatalf("crowd: route registration: %v", err)
		}
	}

	root := func(req *crow.Request, w crow.ResponseWriter) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("crow is up"))
	}
	echo := func(req *crow.Request, w crow.ResponseWriter) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(req.Param("word")))
	}
	static := staticfile.Handler(staticfile.Dir(cfg.StaticDir), "file")

	if cfg.UseCompression != "" {
		echo = compress.Wrap(echo)
		static = compress.Wrap(static)
	}

	must(app.Route("GET", "/", root))

	must(app.Route("GET", "/healthz", func(req *crow.Request, w crow.ResponseWriter) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	}))

	must(app.Route("GET", "/echo/<string:word>", echo))

	must(app.Route("GET", "/static/<path:file>", static))

	must(app.Route("GET", "/ws/echo", func(req *crow.Request, w crow.ResponseWriter) {
		if req.Upgrade() != "websocket" {
			w.WriteHeader(400)
			_, _ = w.Write([]byte("expected a websocket upgrade"))
			return
		}
		err := app.UpgradeWebSocket(req, w, nil, ws.Handler{
			OnMessage: func(c *ws.Conn, data []byte, binary bool) {
				if binary {
					_ = c.SendBinary(data)
				} else {
					_ = c.SendText(string(data))
				}
			},
			OnClose: func(c *ws.Conn, reason string, code int) {
				app.Logger.Debugf("crowd: websocket closed (%d) %s", code, reason)
			},
		})
		if err != nil {
			app.Logger.Errorf("crowd: websocket upgrade: %v", err)
		}
	}))
}

func serveMetrics(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Infof("crowd: metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("crowd: metrics server: %v", err)
	}
}
