package gcp

import (
	"strconv"
	"strings"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

func firewallPolicies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "GCP_Firewall_Open_SSH",
			Title:          "Firewall rule allows SSH from the internet",
			Description:    "An ingress rule permits TCP port 22 from 0.0.0.0/0.",
			Severity:       models.SeverityHigh,
			Recommendation: "Restrict the source ranges or use Identity-Aware Proxy for SSH access.",
			Provider:       Provider,
			ResourceKind:   KindFirewallRule,
			Check:          checkFirewallOpenPort("22"),
		},
		{
			PolicyID:       "GCP_Firewall_Open_RDP",
			Title:          "Firewall rule allows RDP from the internet",
			Description:    "An ingress rule permits TCP port 3389 from 0.0.0.0/0.",
			Severity:       models.SeverityHigh,
			Recommendation: "Restrict the source ranges or use Identity-Aware Proxy for RDP access.",
			Provider:       Provider,
			ResourceKind:   KindFirewallRule,
			Check:          checkFirewallOpenPort("3389"),
		},
	}
}

// firewallPortMatch matches a GCP allowed-ports entry ("22", "1000-2000")
// against one port. An allow block with no ports covers the whole protocol.
func firewallPortMatch(ports []string, port string) bool {
	if len(ports) == 0 {
		return true
	}
	for _, spec := range ports {
		if spec == port {
			return true
		}
		lo, hi, found := strings.Cut(spec, "-")
		if !found {
			continue
		}
		loN, err1 := strconv.Atoi(lo)
		hiN, err2 := strconv.Atoi(hi)
		p, err3 := strconv.Atoi(port)
		if err1 == nil && err2 == nil && err3 == nil && loN <= p && p <= hiN {
			return true
		}
	}
	return false
}

func checkFirewallOpenPort(port string) policy.CheckFunc {
	return func(res policy.Resource) (*policy.Finding, error) {
		if res.Str("direction") == "EGRESS" || res.Bool("disabled") {
			return nil, nil
		}

		world := false
		for _, cidr := range res.StrSlice("source_ranges") {
			if cidr == "0.0.0.0/0" || cidr == "::/0" {
				world = true
				break
			}
		}
		if !world {
			return nil, nil
		}

		for _, allow := range res.MapSlice("allowed") {
			proto, _ := allow["protocol"].(string)
			if proto != "tcp" && proto != "all" {
				continue
			}
			var ports []string
			if raw, ok := allow["ports"].([]any); ok {
				for _, p := range raw {
					if s, ok := p.(string); ok {
						ports = append(ports, s)
					}
				}
			}
			if !firewallPortMatch(ports, port) {
				continue
			}
			details := models.Details{}
			details.Set("firewall_name", res.ID)
			details.Set("network", res.Str("network"))
			details.Set("port", port)
			details.Set("source_ranges", res.StrSlice("source_ranges"))
			return &policy.Finding{Details: details}, nil
		}
		return nil, nil
	}
}
