package aws

import (
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

func ec2Policies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "EC2_SG_Open_SSH",
			Title:          "Security group allows SSH from the internet",
			Description:    "An ingress rule permits TCP port 22 from 0.0.0.0/0 or ::/0.",
			Severity:       models.SeverityHigh,
			Recommendation: "Restrict SSH ingress to known bastion or VPN CIDR ranges.",
			Provider:       Provider,
			ResourceKind:   KindSecurityGroup,
			Check:          checkOpenPort(22),
		},
		{
			PolicyID:       "EC2_SG_Open_RDP",
			Title:          "Security group allows RDP from the internet",
			Description:    "An ingress rule permits TCP port 3389 from 0.0.0.0/0 or ::/0.",
			Severity:       models.SeverityHigh,
			Recommendation: "Restrict RDP ingress to known management CIDR ranges.",
			Provider:       Provider,
			ResourceKind:   KindSecurityGroup,
			Check:          checkOpenPort(3389),
		},
		{
			PolicyID:       "EC2_SG_Open_All_Traffic",
			Title:          "Security group allows all traffic from the internet",
			Description:    "An ingress rule permits every port and protocol from 0.0.0.0/0.",
			Severity:       models.SeverityCritical,
			Recommendation: "Replace the allow-all rule with rules scoped to the ports and sources the workload needs.",
			Provider:       Provider,
			ResourceKind:   KindSecurityGroup,
			Check:          checkOpenAllTraffic,
		},
		{
			PolicyID:       "EC2_Public_Instance_IMDSv1",
			Title:          "Internet-facing instance permits IMDSv1",
			Description:    "The instance has a public IP and its metadata service does not require session tokens, enabling credential theft via SSRF.",
			Severity:       models.SeverityMedium,
			Recommendation: "Set metadata options HttpTokens=required (IMDSv2) on the instance.",
			Provider:       Provider,
			ResourceKind:   KindEC2Instance,
			Check:          checkIMDSv1,
		},
	}
}

// worldCIDRs match ingress sources that mean "everyone".
var worldCIDRs = map[string]bool{
	"0.0.0.0/0": true,
	"::/0":      true,
}

// ruleCoversPort reports whether one ingress rule object opens the given TCP
// port to the world, returning the offending CIDR. A rule with no port bounds
// covers every port.
func ruleCoversPort(rule map[string]any, port int) (string, bool) {
	proto, _ := rule["protocol"].(string)
	if proto != "" && proto != "tcp" && proto != "-1" {
		return "", false
	}

	cidr := ""
	switch v := rule["cidr"].(type) {
	case string:
		if worldCIDRs[v] {
			cidr = v
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && worldCIDRs[s] {
				cidr = s
				break
			}
		}
	}
	if cidr == "" {
		return "", false
	}

	from, fromOK := toInt(rule["from_port"])
	to, toOK := toInt(rule["to_port"])
	if !fromOK && !toOK {
		// No bounds: the rule covers all ports.
		return cidr, true
	}
	if !toOK {
		to = from
	}
	return cidr, from <= port && port <= to
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func checkOpenPort(port int) policy.CheckFunc {
	return func(res policy.Resource) (*policy.Finding, error) {
		for _, rule := range res.MapSlice("ingress_rules") {
			cidr, open := ruleCoversPort(rule, port)
			if !open {
				continue
			}
			details := models.Details{}
			details.Set("group_id", res.ID)
			details.Set("group_name", res.Str("group_name"))
			details.Set("port", port)
			details.Set("source", cidr)
			return &policy.Finding{Details: details}, nil
		}
		return nil, nil
	}
}

func checkOpenAllTraffic(res policy.Resource) (*policy.Finding, error) {
	for _, rule := range res.MapSlice("ingress_rules") {
		proto, _ := rule["protocol"].(string)
		if proto != "-1" {
			continue
		}
		cidr, open := ruleCoversPort(rule, 0)
		if !open {
			continue
		}
		details := models.Details{}
		details.Set("group_id", res.ID)
		details.Set("group_name", res.Str("group_name"))
		details.Set("source", cidr)
		return &policy.Finding{Details: details}, nil
	}
	return nil, nil
}

func checkIMDSv1(res policy.Resource) (*policy.Finding, error) {
	if res.Str("public_ip") == "" {
		return nil, nil
	}
	if res.Str("metadata_http_tokens") == "required" {
		return nil, nil
	}
	details := models.Details{}
	details.Set("instance_id", res.ID)
	details.Set("public_ip", res.Str("public_ip"))
	details.Set("metadata_http_tokens", res.Str("metadata_http_tokens"))
	return &policy.Finding{Details: details}, nil
}
