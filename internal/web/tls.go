package web

import (
	"context"
	"crypto/tls"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"
)

// DefaultCertCache is where ACME certificates are stored when no directory is configured.
const DefaultCertCache = "cert-cache"

const acmeChallengeAddr = ":80"

// StartWithAutoTLS serves the dashboard over HTTPS with ACME certificates for domains.
// A second listener on :80 answers HTTP-01 challenges and redirects everything else.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = DefaultCertCache
	}

	certs := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	g, ctx := errgroup.WithContext(ctx)
	challenge := s.newHTTPServer(ctx, acmeChallengeAddr, certs.HTTPHandler(nil))
	dashboard := s.newHTTPServer(ctx, s.Addr, s.Handler())
	dashboard.TLSConfig = certs.TLSConfig()
	dashboard.TLSConfig.MinVersion = tls.VersionTLS12

	s.l.Info("web dashboard listening with automatic TLS",
		zap.String("addr", s.Addr), zap.Strings("domains", domains), zap.String("cert_cache", cacheDir))

	g.Go(func() error {
		return errors.Wrap(serve(ctx, challenge, challenge.ListenAndServe), "acme challenge listener")
	})
	g.Go(func() error {
		err := serve(ctx, dashboard, func() error { return dashboard.ListenAndServeTLS("", "") })
		return errors.Wrap(err, "https listener")
	})
	return g.Wait()
}
