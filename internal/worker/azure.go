package worker

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
)

// AzureVMController starts and deallocates VMs through the compute
// control plane. Stop deallocates rather than powers off so the VM stops
// accruing compute charges.
type AzureVMController struct {
	credential azcore.TokenCredential
}

func NewAzureVMController(credential azcore.TokenCredential) *AzureVMController {
	return &AzureVMController{credential: credential}
}

func (c *AzureVMController) Start(ctx context.Context, resourceID string) error {
	client, id, err := c.client(resourceID)
	if err != nil {
		return err
	}

	poller, err := client.BeginStart(ctx, id.ResourceGroupName, id.Name, nil)
	if err != nil {
		return fmt.Errorf("starting %s: %w", resourceID, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("starting %s: %w", resourceID, err)
	}
	return nil
}

func (c *AzureVMController) Stop(ctx context.Context, resourceID string) error {
	client, id, err := c.client(resourceID)
	if err != nil {
		return err
	}

	poller, err := client.BeginDeallocate(ctx, id.ResourceGroupName, id.Name, nil)
	if err != nil {
		return fmt.Errorf("deallocating %s: %w", resourceID, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("deallocating %s: %w", resourceID, err)
	}
	return nil
}

func (c *AzureVMController) client(resourceID string) (*armcompute.VirtualMachinesClient, *arm.ResourceID, error) {
	id, err := arm.ParseResourceID(resourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing resource id %q: %w", resourceID, err)
	}

	client, err := armcompute.NewVirtualMachinesClient(id.SubscriptionID, c.credential, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating compute client: %w", err)
	}
	return client, id, nil
}
