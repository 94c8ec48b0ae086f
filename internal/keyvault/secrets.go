package keyvault

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// SecretStore implements acme.SecretReader on a Key Vault.
type SecretStore struct {
	client *azsecrets.Client
}

func NewSecretStore(vaultURL string, credential azcore.TokenCredential) (*SecretStore, error) {
	client, err := azsecrets.NewClient(vaultURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("creating secrets client: %w", err)
	}
	return &SecretStore{client: client}, nil
}

func (s *SecretStore) Get(ctx context.Context, name string) (string, error) {
	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("getting secret %s: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %s has no value", name)
	}
	return *resp.Value, nil
}
