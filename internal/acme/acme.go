// Package acme obtains HTTPS certificates from an ACME directory using
// DNS-01 challenges, keeping the certificate's private key inside a managed
// key store for its whole life: the store produces the CSR and receives the
// signed chain back.
package acme

import (
	"context"
	"errors"
	"time"
)

// CertificateName is the fixed key-store name of the HTTPS certificate.
const CertificateName = "acme-https-cert"

// accountKeySecretName stores the ACME account key between issuance runs.
const accountKeySecretName = "acme-accountkey-pem"

var ErrCertificateNotFound = errors.New("certificate not found")

type CertificateFormat string

const (
	FormatPEM    CertificateFormat = "pem"
	FormatPKCS12 CertificateFormat = "pkcs12"
)

// Options describes one issuance request. Constructed per invocation and
// never persisted.
type Options struct {
	ZoneName        string
	Subdomain       string
	AccountEmail    string
	DirectoryURL    string
	KeyVaultName    string
	ResourceGroupID string
	Format          CertificateFormat
	AlternateNames  []string
}

// OrderIdentifier is the primary DNS name the certificate is issued for.
func (o Options) OrderIdentifier() string {
	if o.Subdomain != "" {
		return o.Subdomain + "." + o.ZoneName
	}
	return o.ZoneName
}

// Certificate is the key-store view of a stored certificate.
type Certificate struct {
	Name       string
	Thumbprint string
	Expires    time.Time
	Enabled    bool
}

// CertificatePolicy parameterizes key-store certificate creation.
type CertificatePolicy struct {
	Subject                 string
	SubjectAlternativeNames []string
	ContentType             CertificateFormat
	ValidityMonths          int
	Exportable              bool
}

// CertificateStore is the key-store side of issuance: it holds the private
// key, emits a CSR for signing, and merges the signed chain into the
// pending operation.
type CertificateStore interface {
	Get(ctx context.Context, name string) (*Certificate, error)
	// Create starts a pending certificate operation and returns the CSR
	// (DER) for the key generated inside the store.
	Create(ctx context.Context, name string, policy CertificatePolicy) ([]byte, error)
	// Merge completes the pending operation with the signed chain and
	// returns the final certificate name.
	Merge(ctx context.Context, name string, chain [][]byte) (string, error)
	// DeleteOperation abandons the pending operation. Best-effort rollback.
	DeleteOperation(ctx context.Context, name string) error
}

// SecretReader loads named secrets, here only the stored account key.
type SecretReader interface {
	Get(ctx context.Context, name string) (string, error)
}

// TemplateDeployer publishes the challenge TXT records (and persists the
// account key) through one batched infrastructure deployment.
type TemplateDeployer interface {
	Deploy(ctx context.Context, templateName string, parameters map[string]any, resourceGroupID string) error
}

// TXTResolver answers TXT lookups against a resolver close to the
// authoritative zone, used to observe propagation before asking the ACME
// server to validate.
type TXTResolver interface {
	LookupTXT(ctx context.Context, fqdn string) ([]string, error)
}

// dnsChallenge pairs one authorization's challenge with its DNS placement.
// It lives only for the duration of one issuance run.
type dnsChallenge struct {
	challenge  Challenge
	fqdn       string
	recordName string
	txt        string
}
