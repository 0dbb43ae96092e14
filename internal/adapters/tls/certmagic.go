// Package tls obtains certificates for the workbench server using CertMagic.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/azure"

	"github.com/jobrunner/gdbee/internal/config"
)

// Manager obtains and renews certificates through ACME DNS-01 challenges on Azure DNS.
type Manager struct {
	config config.TLSConfig
	magic  *certmagic.Config
	logger *slog.Logger
}

// New creates a certificate manager. A disabled configuration yields a
// manager whose TLSConfig is nil.
func New(cfg config.TLSConfig, logger *slog.Logger) (*Manager, error) {
	m := &Manager{config: cfg, logger: logger}
	if !cfg.Enabled {
		return m, nil
	}

	if len(cfg.Domains) == 0 {
		return nil, fmt.Errorf("TLS enabled but no domains specified")
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("TLS enabled but no email specified")
	}

	magic := certmagic.NewDefault()
	if cfg.CacheDir != "" {
		magic.Storage = &certmagic.FileStorage{Path: cfg.CacheDir}
	}

	issuer := certmagic.NewACMEIssuer(magic, certmagic.ACMEIssuer{
		CA:     caURL(cfg.Staging),
		Email:  cfg.Email,
		Agreed: true,
		DNS01Solver: &certmagic.DNS01Solver{
			DNSManager: certmagic.DNSManager{
				DNSProvider: dnsProvider(cfg.DNS),
			},
		},
	})
	magic.Issuers = []certmagic.Issuer{issuer}

	m.magic = magic
	return m, nil
}

// Enabled reports whether certificates are managed.
func (m *Manager) Enabled() bool {
	return m.magic != nil
}

// ManageCertificates obtains certificates for the configured domains and keeps them renewed.
func (m *Manager) ManageCertificates(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}

	m.logger.Info("obtaining certificates", "domains", m.config.Domains, "staging", m.config.Staging)

	if err := m.magic.ManageSync(ctx, m.config.Domains); err != nil {
		return fmt.Errorf("managing certificates: %w", err)
	}

	m.logger.Info("certificates obtained successfully")
	return nil
}

// TLSConfig returns the server TLS configuration, nil when disabled.
func (m *Manager) TLSConfig() *tls.Config {
	if !m.Enabled() {
		return nil
	}
	return m.magic.TLSConfig()
}

func dnsProvider(cfg config.TLSDNSConfig) *azure.Provider {
	return &azure.Provider{
		SubscriptionId:    cfg.SubscriptionID,
		ResourceGroupName: cfg.ResourceGroupName,
		ClientId:          cfg.ClientID, // Empty = System Assigned Managed Identity
	}
}

func caURL(staging bool) string {
	if staging {
		return certmagic.LetsEncryptStagingCA
	}
	return certmagic.LetsEncryptProductionCA
}
