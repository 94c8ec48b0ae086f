package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

const (
	cosmosDatabase  = "botdb"
	cosmosContainer = "servers"
)

// CosmosStore reads game server documents from the bot's Cosmos container.
type CosmosStore struct {
	container *azcosmos.ContainerClient
}

func NewCosmosStore(endpoint string, credential azcore.TokenCredential) (*CosmosStore, error) {
	client, err := azcosmos.NewClient(endpoint, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("creating cosmos client: %w", err)
	}

	container, err := client.NewContainer(cosmosDatabase, cosmosContainer)
	if err != nil {
		return nil, fmt.Errorf("opening container %s/%s: %w", cosmosDatabase, cosmosContainer, err)
	}
	return &CosmosStore{container: container}, nil
}

func (s *CosmosStore) Get(ctx context.Context, name, guildID string) (*GameServer, error) {
	resp, err := s.container.ReadItem(ctx, azcosmos.NewPartitionKeyString(guildID), Key(name, guildID), nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading game server %q: %w", Key(name, guildID), err)
	}

	var server GameServer
	if err := json.Unmarshal(resp.Value, &server); err != nil {
		return nil, fmt.Errorf("decoding game server %q: %w", Key(name, guildID), err)
	}
	return &server, nil
}

func (s *CosmosStore) List(ctx context.Context, guildID string) ([]GameServer, error) {
	pager := s.container.NewQueryItemsPager("SELECT * FROM c", azcosmos.NewPartitionKeyString(guildID), nil)

	var servers []GameServer
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing game servers: %w", err)
		}
		for _, item := range page.Items {
			var server GameServer
			if err := json.Unmarshal(item, &server); err != nil {
				return nil, fmt.Errorf("decoding game server: %w", err)
			}
			servers = append(servers, server)
		}
	}
	return servers, nil
}
