package azure

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// ResourceReader is the subset of Client used to describe a host
type ResourceReader interface {
	GetVM(ctx context.Context, name, resourceGroup string) (*armcompute.VirtualMachine, error)
	GetDisk(ctx context.Context, name, resourceGroup string) (*armcompute.Disk, error)
	GetNIC(ctx context.Context, name, resourceGroup string) (*armnetwork.Interface, error)
	GetResourceGroup(ctx context.Context, name string) (*armresources.ResourceGroup, error)
}

// HostFacts describes the VM hostbench runs on: size, location, OS disk and primary NIC.
// Only the VM lookup is mandatory, the other resources are best effort.
func HostFacts(ctx context.Context, reader ResourceReader, resourceGroup, vmName string) (map[string]interface{}, error) {
	vm, err := reader.GetVM(ctx, vmName, resourceGroup)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("vm %s not found in resource group %s", vmName, resourceGroup)
		}
		return nil, fmt.Errorf("failed to get vm %s: %w", vmName, err)
	}

	facts := map[string]interface{}{
		"vm_name": vmName,
	}
	if vm.Location != nil {
		facts["location"] = *vm.Location
	}

	props := vm.Properties
	if props == nil {
		return facts, nil
	}

	if props.HardwareProfile != nil && props.HardwareProfile.VMSize != nil {
		facts["vm_size"] = string(*props.HardwareProfile.VMSize)
	}

	if props.StorageProfile != nil && props.StorageProfile.OSDisk != nil && props.StorageProfile.OSDisk.Name != nil {
		disk, err := reader.GetDisk(ctx, *props.StorageProfile.OSDisk.Name, resourceGroup)
		if err == nil {
			if disk.SKU != nil && disk.SKU.Name != nil {
				facts["os_disk_sku"] = string(*disk.SKU.Name)
			}
			if disk.Properties != nil && disk.Properties.DiskSizeGB != nil {
				facts["os_disk_size_gb"] = strconv.Itoa(int(*disk.Properties.DiskSizeGB))
			}
		}
	}

	if nicID := primaryNIC(props.NetworkProfile); nicID != "" {
		id, err := arm.ParseResourceID(nicID)
		if err == nil {
			nic, err := reader.GetNIC(ctx, id.Name, id.ResourceGroupName)
			if err == nil && nic.Properties != nil && nic.Properties.EnableAcceleratedNetworking != nil {
				facts["accelerated_networking"] = *nic.Properties.EnableAcceleratedNetworking
			}
		}
	}

	rg, err := reader.GetResourceGroup(ctx, resourceGroup)
	if err == nil && rg.Location != nil {
		facts["resource_group_location"] = *rg.Location
	}

	return facts, nil
}

func primaryNIC(profile *armcompute.NetworkProfile) string {
	if profile == nil {
		return ""
	}

	var first string
	for _, ref := range profile.NetworkInterfaces {
		if ref == nil || ref.ID == nil {
			continue
		}
		if ref.Properties != nil && ref.Properties.Primary != nil && *ref.Properties.Primary {
			return *ref.ID
		}
		if first == "" {
			first = *ref.ID
		}
	}
	return first
}
