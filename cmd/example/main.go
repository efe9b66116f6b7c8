// Example standalone server wiring duex's gateway, router, and builtin
// middleware together, mirroring gorox's hemi/examples/myapp layout
// (minus its leader/worker process supervision, which this module does
// not implement — see DESIGN.md).
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/duex-go/duex"
	"github.com/duex-go/duex/builtin/router"
	"github.com/duex-go/duex/builtin/status"
	"github.com/duex-go/duex/middleware"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9528", "listen address")
	cert := flag.String("cert", "", "TLS certificate path")
	key := flag.String("key", "", "TLS key path")
	mute := flag.Bool("mute", false, "silence logging")
	flag.Parse()

	logger := duex.NewZapLogger(*mute)
	defer logger.Close()

	cfg := duex.DefaultConfig()
	cfg.Server.Cert = *cert
	cfg.Server.Key = *key

	r := router.New()
	r.Link("/foo", duex.RouteEntry{
		"method.*": {duex.DispatcherFunc(handleFoo)},
	})
	r.Link("/", duex.RouteEntry{
		"method.get": {duex.DispatcherFunc(handleRoot)},
	})
	r.Link("/secure", duex.RouteEntry{
		"method.get": {middleware.JWTAuth([]byte(os.Getenv("DUEX_JWT_SECRET"))), duex.DispatcherFunc(handleSecure)},
	})

	gw, err := duex.NewGateway(cfg, r, logger)
	if err != nil {
		logger.Logf("[duex] bootstrap failed: %v", err)
		os.Exit(1)
	}

	// The router is a live reference the gateway dispatches through on
	// every request, so routes may still be added after construction.
	reporter := status.NewReporter(gw.Stats(), prometheus.DefaultRegisterer)
	r.Link("/status", duex.RouteEntry{
		"method.get": {reporter},
	})

	gzipOpts := middleware.DefaultGzipOptions()
	if err := gw.WrapHandler(func(next http.Handler) http.Handler {
		return middleware.Gzip(gzipOpts, next)
	}); err != nil {
		logger.Logf("[duex] wrap handler failed: %v", err)
		os.Exit(1)
	}

	if err := gw.Listen(*addr); err != nil {
		logger.Logf("[duex] listen failed: %v", err)
		os.Exit(1)
	}
	logger.Logf("[duex] listening on %s", *addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Logf("[duex] shutting down")
	if err := gw.Close(); err != nil {
		logger.Logf("[duex] shutdown error: %v", err)
	}
}

func handleFoo(req *duex.Request, sess *duex.Session) error {
	sess.View().MergeBody(map[string]any{"user_agent": req.Headers.Get("User-Agent")})
	return nil
}

func handleRoot(_ *duex.Request, sess *duex.Session) error {
	sess.View().MergeBody(map[string]any{"message": "hello from duex"})
	return nil
}

func handleSecure(_ *duex.Request, sess *duex.Session) error {
	sess.View().MergeBody(map[string]any{"message": "authenticated"})
	return nil
}
