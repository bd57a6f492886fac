package smtp

import (
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/bus"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

// Default security limits, used when config leaves a value unset.
const (
	DefaultMaxMessageSize = 25 * 1024 * 1024 // 25 MB
	DefaultMaxRecipients  = 100
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000
)

// Backend implements the go-smtp Backend interface. One Backend is shared
// across all three listeners (plain, STARTTLS, implicit-TLS).
type Backend struct {
	store           repository.Store
	bus             *bus.Bus
	domain          string
	rejectNonDomain bool
	logger          *slog.Logger
}

// BackendConfig holds the dependencies a Backend is built from.
type BackendConfig struct {
	Store           repository.Store
	Bus             *bus.Bus
	Domain          string
	RejectNonDomain bool
	Logger          *slog.Logger
}

// NewBackend creates a new SMTP backend.
func NewBackend(cfg *BackendConfig) *Backend {
	return &Backend{
		store:           cfg.Store,
		bus:             cfg.Bus,
		domain:          cfg.Domain,
		rejectNonDomain: cfg.RejectNonDomain,
		logger:          cfg.Logger,
	}
}

// NewSession creates a new SMTP session for an incoming connection.
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	if b.logger != nil {
		b.logger.Info("new SMTP connection", slog.String("remote_addr", c.Conn().RemoteAddr().String()))
	}
	return NewSession(b), nil
}

// ListenerKind distinguishes the three SMTP listeners the server exposes.
// Each gets its own *smtp.Server built from the same Backend, since the
// go-smtp Server type carries its TLS posture per-instance.
type ListenerKind int

const (
	// Plain never advertises or accepts STARTTLS.
	Plain ListenerKind = iota
	// StartTLS advertises STARTTLS and upgrades the plaintext socket on
	// request.
	StartTLS
	// ImplicitTLS expects the socket to already be wrapped in TLS before
	// any SMTP bytes are read; the caller is responsible for wrapping the
	// net.Listener with tls.NewListener before passing it to Serve.
	ImplicitTLS
)

// ServerConfig holds the settings a ListenerKind's *smtp.Server is built
// from.
type ServerConfig struct {
	Domain         string
	Kind           ListenerKind
	MaxMessageSize int64
	MaxRecipients  int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	TLSConfig      *tls.Config
}

// NewSecureServer builds a *smtp.Server for one listener kind, sharing
// backend across every listener the caller constructs.
func NewSecureServer(backend *Backend, cfg ServerConfig) *smtp.Server {
	s := smtp.NewServer(backend)

	s.Domain = cfg.Domain
	s.AllowInsecureAuth = true // inbound-only receiver; no auth is required at all

	if cfg.MaxMessageSize > 0 {
		s.MaxMessageBytes = cfg.MaxMessageSize
	} else {
		s.MaxMessageBytes = DefaultMaxMessageSize
	}

	if cfg.MaxRecipients > 0 {
		s.MaxRecipients = cfg.MaxRecipients
	} else {
		s.MaxRecipients = DefaultMaxRecipients
	}

	if cfg.ReadTimeout > 0 {
		s.ReadTimeout = cfg.ReadTimeout
	} else {
		s.ReadTimeout = DefaultReadTimeout
	}

	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	} else {
		s.WriteTimeout = DefaultWriteTimeout
	}

	s.MaxLineLength = DefaultMaxLineLength

	// Only the STARTTLS listener advertises/accepts STARTTLS: setting
	// TLSConfig is what makes go-smtp offer the extension at all. The
	// plain listener leaves it nil and so rejects STARTTLS with 502. The
	// implicit-TLS listener also leaves it nil — its socket already
	// arrived encrypted via a tls.Listener wrapper, so there is nothing
	// left for an in-band STARTTLS to do.
	if cfg.Kind == StartTLS {
		s.TLSConfig = cfg.TLSConfig
	}

	return s
}

// WrapImplicitTLS wraps l so every accepted connection is already TLS
// before the SMTP server reads a single byte, per the implicit-TLS
// listener's contract.
func WrapImplicitTLS(l net.Listener, tlsConfig *tls.Config) net.Listener {
	return tls.NewListener(l, tlsConfig)
}
