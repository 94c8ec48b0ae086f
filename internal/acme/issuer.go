package acme

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/rs/zerolog"
	"software.sslmate.com/src/go-pkcs12"
)

const (
	renewalThreshold = 30 * 24 * time.Hour
	validityMonths   = 3

	defaultPropagationTimeout = 5 * time.Minute
	defaultPollInterval       = 30 * time.Second
	defaultGraceSleep         = 5 * time.Minute
	defaultRollbackTimeout    = 10 * time.Second
)

var errPropagationPending = errors.New("challenge record not yet visible")

// Issuer drives one certificate issuance through its full forward path,
// with a compensating delete of the pending key-store operation on failure.
type Issuer struct {
	Certs     CertificateStore
	Secrets   SecretReader
	Deployer  TemplateDeployer
	Resolver  TXTResolver
	NewClient NewClientFunc
	Clock     clock.Clock
	Log       zerolog.Logger

	// PropagationTimeout bounds the local propagation poll. Deployments
	// have run this anywhere from 5 to 30 minutes.
	PropagationTimeout time.Duration
	PollInterval       time.Duration
	GraceSleep         time.Duration
	RollbackTimeout    time.Duration
}

// NewIssuer applies the standard timing policy.
func NewIssuer(certs CertificateStore, secrets SecretReader, deployer TemplateDeployer, resolver TXTResolver, log zerolog.Logger) *Issuer {
	return &Issuer{
		Certs:              certs,
		Secrets:            secrets,
		Deployer:           deployer,
		Resolver:           resolver,
		NewClient:          NewClient,
		Clock:              clock.WallClock,
		Log:                log,
		PropagationTimeout: defaultPropagationTimeout,
		PollInterval:       defaultPollInterval,
		GraceSleep:         defaultGraceSleep,
		RollbackTimeout:    defaultRollbackTimeout,
	}
}

// IssueHTTPSCertificate returns the name of a valid HTTPS certificate for
// the requested names, reusing the stored one when it is still at least 30
// days from expiry. Any failure after the existing-certificate check
// triggers a best-effort delete of the pending key-store operation before
// the error is returned.
func (i *Issuer) IssueHTTPSCertificate(ctx context.Context, opts Options) (string, error) {
	cert, err := i.Certs.Get(ctx, CertificateName)
	switch {
	case err == nil:
		if cert.Enabled && cert.Expires.After(i.Clock.Now().Add(renewalThreshold)) {
			i.Log.Info().Str("thumbprint", cert.Thumbprint).Msg("existing valid certificate found")
			return cert.Name, nil
		}
		i.Log.Warn().Str("thumbprint", cert.Thumbprint).Msg("certificate is expiring soon, generating a new one")
	case errors.Is(err, ErrCertificateNotFound):
		i.Log.Info().Msg("no existing certificate found, generating a new one")
	default:
		// A transient store error is not proof the certificate is absent;
		// reissuing on it would burn directory rate limits.
		return "", fmt.Errorf("checking existing certificate: %w", err)
	}

	name, err := i.issue(ctx, opts)
	if err != nil {
		i.rollback()
		return "", err
	}
	return name, nil
}

func (i *Issuer) issue(ctx context.Context, opts Options) (string, error) {
	client, err := i.setupAccount(ctx, opts)
	if err != nil {
		return "", err
	}

	identifier := opts.OrderIdentifier()
	order, err := client.NewOrder(ctx, append([]string{identifier}, opts.AlternateNames...))
	if err != nil {
		return "", err
	}

	challenges, err := i.collectChallenges(ctx, client, order, opts)
	if err != nil {
		return "", err
	}

	if err := i.publishChallenges(ctx, client, challenges, opts); err != nil {
		return "", err
	}

	if err := i.awaitPropagation(ctx, challenges[0]); err != nil {
		return "", err
	}

	i.Log.Info().Msg("validating dns challenges")
	for _, ch := range challenges {
		if err := client.Accept(ctx, ch.challenge); err != nil {
			return "", err
		}
	}

	i.Log.Info().Msg("generating csr from key store")
	csr, err := i.Certs.Create(ctx, CertificateName, CertificatePolicy{
		Subject:                 "CN=" + identifier,
		SubjectAlternativeNames: append([]string{identifier}, opts.AlternateNames...),
		ContentType:             opts.Format,
		ValidityMonths:          validityMonths,
		Exportable:              true,
	})
	if err != nil {
		return "", err
	}

	i.Log.Info().Msg("finalizing order with key store csr")
	chain, err := client.Finalize(ctx, order, csr)
	if err != nil {
		return "", err
	}

	bundle, err := buildPFXBundle(chain)
	if err != nil {
		return "", err
	}

	name, err := i.Certs.Merge(ctx, CertificateName, [][]byte{bundle})
	if err != nil {
		return "", fmt.Errorf("merging certificate: %w", err)
	}
	return name, nil
}

// setupAccount reuses the stored account key when possible and otherwise
// registers a brand-new account. Any load failure falls through to account
// creation.
func (i *Issuer) setupAccount(ctx context.Context, opts Options) (Client, error) {
	if keyPEM, err := i.Secrets.Get(ctx, accountKeySecretName); err == nil {
		if key, err := ParseAccountKey(keyPEM); err == nil {
			i.Log.Debug().Msg("found existing acme account")
			return i.NewClient(opts.DirectoryURL, key), nil
		}
	}

	i.Log.Info().Str("directory", opts.DirectoryURL).Str("email", opts.AccountEmail).Msg("creating new acme account")
	key, err := NewAccountKey()
	if err != nil {
		return nil, fmt.Errorf("generating account key: %w", err)
	}

	client := i.NewClient(opts.DirectoryURL, key)
	if err := client.Register(ctx, opts.AccountEmail); err != nil {
		return nil, err
	}
	return client, nil
}

// collectChallenges fetches the DNS-01 challenge of every authorization and
// computes its zone-relative record placement. An authorization outside the
// configured zone aborts the run before anything is published.
func (i *Issuer) collectChallenges(ctx context.Context, client Client, order *Order, opts Options) ([]dnsChallenge, error) {
	challenges := make([]dnsChallenge, 0, len(order.AuthzURLs))
	for _, authzURL := range order.AuthzURLs {
		authz, err := client.DNSChallenge(ctx, authzURL)
		if err != nil {
			return nil, err
		}

		if !strings.HasSuffix(authz.Identifier, opts.ZoneName) {
			return nil, fmt.Errorf("challenge presented for %s, which is outside of root zone %s", authz.Identifier, opts.ZoneName)
		}

		txt, err := client.ChallengeRecord(authz.Challenge.Token)
		if err != nil {
			return nil, err
		}

		fqdn := "_acme-challenge." + authz.Identifier
		challenges = append(challenges, dnsChallenge{
			challenge:  authz.Challenge,
			fqdn:       fqdn,
			recordName: fqdn[:len(fqdn)-len(opts.ZoneName)-1],
			txt:        txt,
		})
	}

	if len(challenges) == 0 {
		return nil, errors.New("order produced no authorizations")
	}
	return challenges, nil
}

// publishChallenges deploys all TXT records in one batched template
// deployment, persisting the account key alongside them.
func (i *Issuer) publishChallenges(ctx context.Context, client Client, challenges []dnsChallenge, opts Options) error {
	accountKey, err := client.AccountKeyPEM()
	if err != nil {
		return err
	}

	records := make([]map[string]string, 0, len(challenges))
	for _, ch := range challenges {
		records = append(records, map[string]string{"name": ch.recordName, "text": ch.txt})
	}

	return i.Deployer.Deploy(ctx, "acme-challenge", map[string]any{
		"keyVaultName": opts.KeyVaultName,
		"accountKey":   accountKey,
		"dnsZoneName":  opts.ZoneName,
		"challenges":   records,
	}, opts.ResourceGroupID)
}

// awaitPropagation polls the local resolver for the first challenge's TXT
// record, then sleeps a grace period so the directory's resolver is likely
// to observe it too. The grace margin is empirical, not a protocol
// requirement.
func (i *Issuer) awaitPropagation(ctx context.Context, first dnsChallenge) error {
	i.Log.Info().Str("record", first.fqdn).Dur("timeout", i.PropagationTimeout).Msg("waiting for dns challenge to propagate")

	waitCtx, cancel := context.WithTimeout(ctx, i.PropagationTimeout)
	defer cancel()

	err := retry.Call(retry.CallArgs{
		Clock:    i.Clock,
		Delay:    i.PollInterval,
		Attempts: retry.UnlimitedAttempts,
		Stop:     waitCtx.Done(),
		Func: func() error {
			values, err := i.Resolver.LookupTXT(waitCtx, first.fqdn)
			if err != nil {
				return err
			}
			for _, value := range values {
				if value == first.txt {
					return nil
				}
			}
			return errPropagationPending
		},
	})
	if err != nil {
		if ctxErr := waitCtx.Err(); ctxErr != nil {
			return fmt.Errorf("waiting for propagation of %s: %w", first.fqdn, ctxErr)
		}
		return fmt.Errorf("waiting for propagation of %s: %w", first.fqdn, err)
	}

	i.Log.Info().Dur("grace", i.GraceSleep).Msg("challenge record visible locally, sleeping so the directory observes it too")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.Clock.After(i.GraceSleep):
		return nil
	}
}

// rollback abandons the pending certificate operation. It runs on an
// independent short deadline so cleanup is attempted even when the original
// failure was itself a cancellation.
func (i *Issuer) rollback() {
	ctx, cancel := context.WithTimeout(context.Background(), i.RollbackTimeout)
	defer cancel()

	if err := i.Certs.DeleteOperation(ctx, CertificateName); err != nil {
		i.Log.Warn().Err(err).Msg("deleting pending certificate operation failed")
	}
}

// buildPFXBundle wraps the issued chain in a PKCS#12 envelope with a fresh
// throwaway key and empty password, the merge format the key store expects.
func buildPFXBundle(chain [][]byte) ([]byte, error) {
	if len(chain) == 0 {
		return nil, errors.New("empty certificate chain")
	}

	certs := make([]*x509.Certificate, 0, len(chain))
	for _, der := range chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("parsing issued certificate: %w", err)
		}
		certs = append(certs, cert)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generating bundle key: %w", err)
	}

	bundle, err := pkcs12.Modern.Encode(key, certs[0], certs[1:], "")
	if err != nil {
		return nil, fmt.Errorf("building pfx bundle: %w", err)
	}
	return bundle, nil
}
