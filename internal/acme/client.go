package acme

import (
	"context"
	"crypto"
	"errors"
	"fmt"

	"golang.org/x/crypto/acme"
)

// Challenge is the handle for one DNS-01 challenge.
type Challenge struct {
	Token string
	URI   string
}

// Authorization is the DNS-01 view of one order authorization.
type Authorization struct {
	Identifier string
	Challenge  Challenge
}

// Order tracks one certificate order through to finalization.
type Order struct {
	URI         string
	FinalizeURL string
	AuthzURLs   []string
}

// Client is the slice of the ACME protocol the issuer needs. The production
// implementation wraps golang.org/x/crypto/acme; tests substitute a fake
// directory.
type Client interface {
	// Register creates an account for the client's key, accepting the
	// directory's terms of service. Registering an already-known key is
	// not an error.
	Register(ctx context.Context, email string) error
	NewOrder(ctx context.Context, identifiers []string) (*Order, error)
	// DNSChallenge fetches the authorization at authzURL and selects its
	// DNS-01 challenge.
	DNSChallenge(ctx context.Context, authzURL string) (*Authorization, error)
	// ChallengeRecord computes the TXT record value (key-authorization
	// digest) proving control of the challenge token.
	ChallengeRecord(token string) (string, error)
	// Accept asks the server to validate a challenge.
	Accept(ctx context.Context, ch Challenge) error
	// Finalize waits for the order to become ready, submits the CSR, and
	// downloads the issued chain (DER certificates, leaf first).
	Finalize(ctx context.Context, order *Order, csr []byte) ([][]byte, error)
	// AccountKeyPEM exports the account key for persistence.
	AccountKeyPEM() (string, error)
}

// NewClientFunc constructs a Client for a directory and account key.
type NewClientFunc func(directoryURL string, key crypto.Signer) Client

// NewClient returns the production Client backed by x/crypto/acme.
func NewClient(directoryURL string, key crypto.Signer) Client {
	return &directoryClient{
		inner: &acme.Client{Key: key, DirectoryURL: directoryURL},
		key:   key,
	}
}

type directoryClient struct {
	inner *acme.Client
	key   crypto.Signer
}

func (c *directoryClient) Register(ctx context.Context, email string) error {
	account := &acme.Account{Contact: []string{"mailto:" + email}}
	_, err := c.inner.Register(ctx, account, acme.AcceptTOS)
	if errors.Is(err, acme.ErrAccountAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("registering account: %w", err)
	}
	return nil
}

func (c *directoryClient) NewOrder(ctx context.Context, identifiers []string) (*Order, error) {
	order, err := c.inner.AuthorizeOrder(ctx, acme.DomainIDs(identifiers...))
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	return &Order{URI: order.URI, FinalizeURL: order.FinalizeURL, AuthzURLs: order.AuthzURLs}, nil
}

func (c *directoryClient) DNSChallenge(ctx context.Context, authzURL string) (*Authorization, error) {
	authz, err := c.inner.GetAuthorization(ctx, authzURL)
	if err != nil {
		return nil, fmt.Errorf("fetching authorization: %w", err)
	}

	for _, ch := range authz.Challenges {
		if ch.Type == "dns-01" {
			return &Authorization{
				Identifier: authz.Identifier.Value,
				Challenge:  Challenge{Token: ch.Token, URI: ch.URI},
			}, nil
		}
	}
	return nil, fmt.Errorf("authorization for %s offers no dns-01 challenge", authz.Identifier.Value)
}

func (c *directoryClient) ChallengeRecord(token string) (string, error) {
	record, err := c.inner.DNS01ChallengeRecord(token)
	if err != nil {
		return "", fmt.Errorf("computing challenge record: %w", err)
	}
	return record, nil
}

func (c *directoryClient) Accept(ctx context.Context, ch Challenge) error {
	if _, err := c.inner.Accept(ctx, &acme.Challenge{URI: ch.URI, Token: ch.Token}); err != nil {
		return fmt.Errorf("accepting challenge: %w", err)
	}
	return nil
}

func (c *directoryClient) Finalize(ctx context.Context, order *Order, csr []byte) ([][]byte, error) {
	if _, err := c.inner.WaitOrder(ctx, order.URI); err != nil {
		return nil, fmt.Errorf("waiting for order: %w", err)
	}

	chain, _, err := c.inner.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return nil, fmt.Errorf("finalizing order: %w", err)
	}
	return chain, nil
}

func (c *directoryClient) AccountKeyPEM() (string, error) {
	return EncodeAccountKey(c.key)
}
