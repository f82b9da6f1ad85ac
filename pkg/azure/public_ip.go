package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v2"
)

func (c *Client) GetPublicIP(ctx context.Context, name, resourceGroup string) (*armnetwork.PublicIPAddress, error) {
	resp, err := c.PublicIpAddressesClient.Get(ctx, resourceGroup, name, nil)

	if err != nil {
		return nil, err
	}

	return &resp.PublicIPAddress, nil
}

// PublicIPAddress returns the address allocated to a public IP resource
func (c *Client) PublicIPAddress(ctx context.Context, name, resourceGroup string) (string, error) {
	ip, err := c.GetPublicIP(ctx, name, resourceGroup)
	if err != nil {
		if IsNotFound(err) {
			return "", fmt.Errorf("public ip %s not found in resource group %s", name, resourceGroup)
		}
		return "", err
	}

	if ip.Properties == nil || ip.Properties.IPAddress == nil || *ip.Properties.IPAddress == "" {
		return "", fmt.Errorf("public ip %s has no address allocated", name)
	}

	return *ip.Properties.IPAddress, nil
}
