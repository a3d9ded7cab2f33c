package aws

import (
	"strings"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

// staleKeyAgeDays is the rotation window after which an active access key is
// flagged.
const staleKeyAgeDays = 90

func iamPolicies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "IAM_User_No_MFA",
			Title:          "IAM user has no MFA device",
			Description:    "The user can authenticate with a password alone.",
			Severity:       models.SeverityHigh,
			Recommendation: "Require a virtual or hardware MFA device for every user with console access.",
			Provider:       Provider,
			ResourceKind:   KindIAMUser,
			Check:          checkIAMNoMFA,
		},
		{
			PolicyID:       "IAM_User_Stale_Access_Key",
			Title:          "IAM user has an access key overdue for rotation",
			Description:    "An active access key is older than the rotation window.",
			Severity:       models.SeverityMedium,
			Recommendation: "Rotate access keys at least every 90 days and delete unused ones.",
			Provider:       Provider,
			ResourceKind:   KindIAMUser,
			Check:          checkIAMStaleKeys,
		},
		{
			PolicyID:       "IAM_User_Admin_Access",
			Title:          "IAM user has administrator privileges attached directly",
			Description:    "The user carries AdministratorAccess or a wildcard policy instead of inheriting scoped permissions through a group or role.",
			Severity:       models.SeverityCritical,
			Recommendation: "Move the user to a scoped group and grant elevated access through assumable roles.",
			Provider:       Provider,
			ResourceKind:   KindIAMUser,
			Check:          checkIAMAdminAccess,
		},
	}
}

func checkIAMNoMFA(res policy.Resource) (*policy.Finding, error) {
	if !res.Bool("console_access") {
		return nil, nil
	}
	if res.Bool("mfa_enabled") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("user_name", res.Str("user_name"))
	return &policy.Finding{Details: details}, nil
}

func checkIAMStaleKeys(res policy.Resource) (*policy.Finding, error) {
	var stale []string
	maxAge := 0
	for _, key := range res.MapSlice("access_keys") {
		status, _ := key["status"].(string)
		if status != "Active" {
			continue
		}
		age, ok := toInt(key["age_days"])
		if !ok || age <= staleKeyAgeDays {
			continue
		}
		if id, _ := key["key_id"].(string); id != "" {
			stale = append(stale, id)
		}
		if age > maxAge {
			maxAge = age
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}
	details := models.Details{}
	details.Set("user_name", res.Str("user_name"))
	details.Set("stale_key_ids", stale)
	details.Set("oldest_key_age_days", maxAge)
	return &policy.Finding{Details: details}, nil
}

func checkIAMAdminAccess(res policy.Resource) (*policy.Finding, error) {
	for _, arn := range res.StrSlice("attached_policy_arns") {
		if strings.HasSuffix(arn, ":policy/AdministratorAccess") || arn == "AdministratorAccess" {
			details := models.Details{}
			details.Set("user_name", res.Str("user_name"))
			details.Set("policy_arn", arn)
			return &policy.Finding{Details: details}, nil
		}
	}
	for _, doc := range res.MapSlice("inline_policies") {
		action, _ := doc["action"].(string)
		resource, _ := doc["resource"].(string)
		if action == "*" && resource == "*" {
			name, _ := doc["name"].(string)
			details := models.Details{}
			details.Set("user_name", res.Str("user_name"))
			details.Set("inline_policy", name)
			details.Set("statement", "Allow * on *")
			return &policy.Finding{Details: details}, nil
		}
	}
	return nil, nil
}
