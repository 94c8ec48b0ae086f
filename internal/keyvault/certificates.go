// Package keyvault adapts Azure Key Vault certificates and secrets to the
// narrow interfaces the issuance workflow consumes.
package keyvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azcertificates"

	"azurebot/internal/acme"
)

// issuerUnknown makes the vault produce a CSR instead of self-signing.
const issuerUnknown = "Unknown"

// CertificateStore implements acme.CertificateStore on a Key Vault.
type CertificateStore struct {
	client *azcertificates.Client
}

func NewCertificateStore(vaultURL string, credential azcore.TokenCredential) (*CertificateStore, error) {
	client, err := azcertificates.NewClient(vaultURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("creating certificates client: %w", err)
	}
	return &CertificateStore{client: client}, nil
}

func (s *CertificateStore) Get(ctx context.Context, name string) (*acme.Certificate, error) {
	resp, err := s.client.GetCertificate(ctx, name, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return nil, acme.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("getting certificate %s: %w", name, err)
	}

	cert := &acme.Certificate{
		Name:       resp.ID.Name(),
		Thumbprint: fmt.Sprintf("%X", resp.X509Thumbprint),
	}
	if resp.Attributes != nil {
		if resp.Attributes.Expires != nil {
			cert.Expires = *resp.Attributes.Expires
		}
		if resp.Attributes.Enabled != nil {
			cert.Enabled = *resp.Attributes.Enabled
		}
	}
	return cert, nil
}

func (s *CertificateStore) Create(ctx context.Context, name string, policy acme.CertificatePolicy) ([]byte, error) {
	sans := make([]*string, 0, len(policy.SubjectAlternativeNames))
	for _, san := range policy.SubjectAlternativeNames {
		sans = append(sans, to.Ptr(san))
	}

	contentType := "application/x-pem-file"
	if policy.ContentType == acme.FormatPKCS12 {
		contentType = "application/x-pkcs12"
	}

	resp, err := s.client.CreateCertificate(ctx, name, azcertificates.CreateCertificateParameters{
		CertificatePolicy: &azcertificates.CertificatePolicy{
			IssuerParameters: &azcertificates.IssuerParameters{
				Name: to.Ptr(issuerUnknown),
			},
			X509CertificateProperties: &azcertificates.X509CertificateProperties{
				Subject:                 to.Ptr(policy.Subject),
				SubjectAlternativeNames: &azcertificates.SubjectAlternativeNames{DNSNames: sans},
				ValidityInMonths:        to.Ptr(int32(policy.ValidityMonths)),
			},
			KeyProperties: &azcertificates.KeyProperties{
				Exportable: to.Ptr(policy.Exportable),
				KeyType:    to.Ptr(azcertificates.KeyTypeRSA),
				KeySize:    to.Ptr(int32(2048)),
			},
			SecretProperties: &azcertificates.SecretProperties{
				ContentType: to.Ptr(contentType),
			},
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating certificate %s: %w", name, err)
	}
	return resp.CSR, nil
}

func (s *CertificateStore) Merge(ctx context.Context, name string, chain [][]byte) (string, error) {
	resp, err := s.client.MergeCertificate(ctx, name, azcertificates.MergeCertificateParameters{
		X509Certificates: chain,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("merging certificate %s: %w", name, err)
	}
	return resp.ID.Name(), nil
}

func (s *CertificateStore) DeleteOperation(ctx context.Context, name string) error {
	if _, err := s.client.DeleteCertificateOperation(ctx, name, nil); err != nil {
		return fmt.Errorf("deleting certificate operation %s: %w", name, err)
	}
	return nil
}
