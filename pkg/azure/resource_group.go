package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

func (c *Client) GetResourceGroup(ctx context.Context, name string) (*armresources.ResourceGroup, error) {
	resp, err := c.ResourceGroupsClient.Get(ctx, name, nil)
	if err != nil {
		return nil, err
	}

	return &resp.ResourceGroup, nil
}
