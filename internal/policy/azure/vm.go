package azure

import (
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

func vmPolicies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "Azure_VM_No_Disk_Encryption",
			Title:          "Virtual machine OS disk is not encrypted",
			Description:    "The OS disk lacks Azure Disk Encryption or a customer-managed key.",
			Severity:       models.SeverityMedium,
			Recommendation: "Enable Azure Disk Encryption on the VM's disks.",
			Provider:       Provider,
			ResourceKind:   KindVirtualMachine,
			Check:          checkVMDiskEncryption,
		},
		{
			PolicyID:       "Azure_VM_Unmanaged_Disks",
			Title:          "Virtual machine uses unmanaged disks",
			Description:    "Unmanaged disks miss per-disk RBAC, encryption sets and reliability guarantees of managed disks.",
			Severity:       models.SeverityLow,
			Recommendation: "Migrate the VM to managed disks.",
			Provider:       Provider,
			ResourceKind:   KindVirtualMachine,
			Check:          checkVMUnmanagedDisks,
		},
	}
}

func checkVMDiskEncryption(res policy.Resource) (*policy.Finding, error) {
	if res.Bool("os_disk_encrypted") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("vm_name", res.ID)
	details.Set("os_disk", res.Str("os_disk_name"))
	return &policy.Finding{Details: details}, nil
}

func checkVMUnmanagedDisks(res policy.Resource) (*policy.Finding, error) {
	if res.Bool("uses_managed_disks") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("vm_name", res.ID)
	return &policy.Finding{Details: details}, nil
}
