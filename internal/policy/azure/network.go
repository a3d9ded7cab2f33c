package azure

import (
	"strconv"
	"strings"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

func networkPolicies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "Azure_NSG_Open_SSH",
			Title:          "Network security group allows SSH from the internet",
			Description:    "An inbound Allow rule permits port 22 from any source.",
			Severity:       models.SeverityHigh,
			Recommendation: "Restrict the rule's source to management CIDR ranges or use Azure Bastion.",
			Provider:       Provider,
			ResourceKind:   KindNetworkSecurityGroup,
			Check:          checkNSGOpenPort("22"),
		},
		{
			PolicyID:       "Azure_NSG_Open_RDP",
			Title:          "Network security group allows RDP from the internet",
			Description:    "An inbound Allow rule permits port 3389 from any source.",
			Severity:       models.SeverityHigh,
			Recommendation: "Restrict the rule's source to management CIDR ranges or use Azure Bastion.",
			Provider:       Provider,
			ResourceKind:   KindNetworkSecurityGroup,
			Check:          checkNSGOpenPort("3389"),
		},
	}
}

// openSources are NSG source prefixes equivalent to the whole internet.
var openSources = map[string]bool{
	"*":         true,
	"Internet":  true,
	"0.0.0.0/0": true,
	"::/0":      true,
}

// portInRange matches an NSG destination port spec ("*", "22", "1000-2000")
// against a single port.
func portInRange(spec, port string) bool {
	if spec == "*" || spec == port {
		return true
	}
	lo, hi, found := strings.Cut(spec, "-")
	if !found {
		return false
	}
	loN, err1 := strconv.Atoi(lo)
	hiN, err2 := strconv.Atoi(hi)
	p, err3 := strconv.Atoi(port)
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	return loN <= p && p <= hiN
}

func checkNSGOpenPort(port string) policy.CheckFunc {
	return func(res policy.Resource) (*policy.Finding, error) {
		for _, rule := range res.MapSlice("security_rules") {
			access, _ := rule["access"].(string)
			direction, _ := rule["direction"].(string)
			if access != "Allow" || direction != "Inbound" {
				continue
			}
			source, _ := rule["source_address_prefix"].(string)
			if !openSources[source] {
				continue
			}
			portSpec, _ := rule["destination_port_range"].(string)
			if !portInRange(portSpec, port) {
				continue
			}
			name, _ := rule["name"].(string)
			details := models.Details{}
			details.Set("nsg_name", res.ID)
			details.Set("rule_name", name)
			details.Set("port", port)
			details.Set("source", source)
			return &policy.Finding{Details: details}, nil
		}
		return nil, nil
	}
}
