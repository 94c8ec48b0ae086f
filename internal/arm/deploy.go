// Package arm runs embedded ARM template deployments against a resource
// group, used to publish DNS challenge records and persist vault secrets in
// one batch.
package arm

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azarm "github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/rs/zerolog"
)

//go:embed templates/*.json
var templates embed.FS

// Deployer implements acme.TemplateDeployer on the Azure deployments API.
type Deployer struct {
	credential azcore.TokenCredential
	Log        zerolog.Logger
}

func NewDeployer(credential azcore.TokenCredential, log zerolog.Logger) *Deployer {
	return &Deployer{credential: credential, Log: log}
}

// Deploy runs the named embedded template in the resource group, blocking
// until the deployment completes. Parameters are passed by value, so a
// failed deployment leaves nothing to clean up here.
func (d *Deployer) Deploy(ctx context.Context, templateName string, parameters map[string]any, resourceGroupID string) error {
	id, err := azarm.ParseResourceID(resourceGroupID)
	if err != nil {
		return fmt.Errorf("parsing resource group id: %w", err)
	}

	template, err := loadTemplate(templateName)
	if err != nil {
		return err
	}

	client, err := armresources.NewDeploymentsClient(id.SubscriptionID, d.credential, nil)
	if err != nil {
		return fmt.Errorf("creating deployments client: %w", err)
	}

	wrapped := make(map[string]any, len(parameters))
	for name, value := range parameters {
		wrapped[name] = map[string]any{"value": value}
	}

	d.Log.Info().Str("template", templateName).Str("resource_group", id.Name).Msg("starting template deployment")
	poller, err := client.BeginCreateOrUpdate(ctx, id.Name, templateName, armresources.Deployment{
		Properties: &armresources.DeploymentProperties{
			Template:   template,
			Parameters: wrapped,
			Mode:       to.Ptr(armresources.DeploymentModeIncremental),
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("starting deployment %s: %w", templateName, err)
	}

	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("deployment %s: %w", templateName, err)
	}
	d.Log.Info().Str("template", templateName).Msg("template deployment complete")
	return nil
}

func loadTemplate(name string) (map[string]any, error) {
	raw, err := templates.ReadFile("templates/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown template %s: %w", name, err)
	}
	var template map[string]any
	if err := json.Unmarshal(raw, &template); err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return template, nil
}
