package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v4"
)

func (c *Client) GetDisk(ctx context.Context, name, resourceGroup string) (*armcompute.Disk, error) {
	resp, err := c.DisksClient.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}

	return &resp.Disk, nil
}
