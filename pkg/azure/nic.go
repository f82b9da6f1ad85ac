package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v2"
)

func (c *Client) GetNIC(ctx context.Context, name, resourceGroup string) (*armnetwork.Interface, error) {
	resp, err := c.InterfacesClient.Get(ctx, resourceGroup, name, nil)

	if err != nil {
		return nil, err
	}

	return &resp.Interface, nil
}
