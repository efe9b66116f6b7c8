package duex

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/pkcs12"
)

// buildTLSConfig builds the TLS server config of §6. NextProtos always
// advertises both h2 and http/1.1 — preface sniffing, not ALPN, is
// authoritative (§4.1) — so ALPN is only ever an optimization hint here.
func buildTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	cert, err := loadCertificate(cfg)
	if err != nil {
		return nil, err
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2", "http/1.1"},
	}
	if v, ok := tlsVersion(cfg.MinVersion); ok {
		tlsConfig.MinVersion = v
	}
	if v, ok := tlsVersion(cfg.MaxVersion); ok {
		tlsConfig.MaxVersion = v
	}
	return tlsConfig, nil
}

func loadCertificate(cfg *TLSConfig) (tls.Certificate, error) {
	if cfg.PFX != "" {
		return loadPFXCertificate(cfg.PFX)
	}
	return tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
}

func loadPFXCertificate(path string) (tls.Certificate, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, err
	}
	key, cert, err := pkcs12.Decode(blob, "")
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode PFX: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{cert.Raw}, PrivateKey: key}, nil
}

func tlsVersion(name string) (uint16, bool) {
	switch name {
	case "TLSv1.2":
		return tls.VersionTLS12, true
	case "TLSv1.3":
		return tls.VersionTLS13, true
	default:
		return 0, false
	}
}

// certWatcher hot-reloads the serving certificate when Key/Cert files
// change on disk (SPEC_FULL.md §4.1, supplemented feature grounded on
// elliota43/go-php-app-server's fsnotify-driven hot reload).
type certWatcher struct {
	cfg     *TLSConfig
	watcher *fsnotify.Watcher
	current atomic.Pointer[tls.Config]
	logger  Logger
	done    chan struct{}
}

func newCertWatcher(cfg *TLSConfig, base *tls.Config, logger Logger) (*certWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, path := range []string{cfg.Cert, cfg.Key} {
		if path == "" {
			continue
		}
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	cw := &certWatcher{cfg: cfg, watcher: watcher, logger: logger, done: make(chan struct{})}
	cw.current.Store(base)
	go cw.run()
	return cw, nil
}

func (cw *certWatcher) tlsConfig() *tls.Config { return cw.current.Load() }

func (cw *certWatcher) run() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cert, err := loadCertificate(cw.cfg)
			if err != nil {
				cw.logger.Logf("[duex] certificate reload failed: %v", err)
				continue
			}
			next := cw.current.Load().Clone()
			next.Certificates = []tls.Certificate{cert}
			cw.current.Store(next)
			cw.logger.Logf("[duex] certificate reloaded from %s", event.Name)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Logf("[duex] certificate watcher error: %v", err)
		case <-cw.done:
			return
		}
	}
}

func (cw *certWatcher) close() {
	close(cw.done)
	cw.watcher.Close()
}
