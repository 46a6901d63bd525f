// Package identity supplies the network identity that probe and encoder
// requests are attributed to.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jmylchreest/streamsift/internal/config"
	"github.com/jmylchreest/streamsift/internal/httpclient"
)

// maxLookupBody bounds the echo service response.
const maxLookupBody = 256

// ErrInvalidAddress is returned when a lookup yields something other than an IP.
var ErrInvalidAddress = errors.New("lookup returned an invalid address")

// Provider returns the network identity to attribute requests to.
type Provider interface {
	Address(ctx context.Context) (string, error)
}

// Static is a fixed identity.
type Static string

// Address returns the fixed identity.
func (s Static) Address(context.Context) (string, error) {
	return string(s), nil
}

// Lookup discovers the ambient public address from a plain-text echo service.
type Lookup struct {
	url    string
	client *httpclient.Client
	logger *slog.Logger
}

// NewLookup creates a lookup provider querying url.
func NewLookup(url string, client *httpclient.Client, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{url: url, client: client, logger: logger}
}

// Address queries the echo service.
func (l *Lookup) Address(ctx context.Context) (string, error) {
	text, err := l.client.GetText(ctx, l.url, maxLookupBody)
	if err != nil {
		return "", fmt.Errorf("looking up network identity: %w", err)
	}
	if net.ParseIP(text) == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, text)
	}
	l.logger.Debug("network identity resolved", slog.String("address", text))
	return text, nil
}

// FromConfig returns a static provider when an address is configured, a
// lookup provider when a lookup URL is configured, and an empty static
// identity otherwise.
func FromConfig(cfg config.IdentityConfig, logger *slog.Logger) Provider {
	switch {
	case cfg.Address != "":
		return Static(cfg.Address)
	case cfg.LookupURL != "":
		clientCfg := httpclient.DefaultConfig()
		clientCfg.Timeout = cfg.Timeout
		clientCfg.Logger = logger
		return NewLookup(cfg.LookupURL, httpclient.New(clientCfg), logger)
	default:
		return Static("")
	}
}
