package azure

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

type Opts struct {
	SubscriptionID string
}

// Client reads the Azure resources backing the benchmarked machine
type Client struct {
	ResourceGroupsClient    *armresources.ResourceGroupsClient
	PublicIpAddressesClient *armnetwork.PublicIPAddressesClient
	InterfacesClient        *armnetwork.InterfacesClient
	VirtualMachinesClient   *armcompute.VirtualMachinesClient
	DisksClient             *armcompute.DisksClient
}

func New(opts *Opts) (*Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}

	// Create factories
	clientFactory, err := armresources.NewClientFactory(opts.SubscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}

	networkClientFactory, err := armnetwork.NewClientFactory(opts.SubscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}

	computeClientFactory, err := armcompute.NewClientFactory(opts.SubscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		ResourceGroupsClient:    clientFactory.NewResourceGroupsClient(),
		PublicIpAddressesClient: networkClientFactory.NewPublicIPAddressesClient(),
		InterfacesClient:        networkClientFactory.NewInterfacesClient(),
		VirtualMachinesClient:   computeClientFactory.NewVirtualMachinesClient(),
		DisksClient:             computeClientFactory.NewDisksClient(),
	}, nil
}

// IsNotFound reports whether err is an Azure 404 response
func IsNotFound(err error) bool {
	var respError *azcore.ResponseError
	if errors.As(err, &respError) {
		return respError.StatusCode == http.StatusNotFound
	}
	return false
}
