package policy

import (
	"fmt"
	"strings"

	"github.com/hugh/go-warden/internal/database/models"
)

// Reserved policy-id markers for findings that report engine trouble rather
// than a real violation.
const (
	// EngineErrorPolicyID marks a finding produced when a policy check
	// panicked or returned an error.
	EngineErrorPolicyID = "POLICY_ENGINE_ERROR"

	collectionErrorSuffix = "_Collection_Error"
)

// CollectionErrorPolicyID builds the policy id used for findings that carry
// an upstream collection failure, e.g. "AWS_Collection_Error".
func CollectionErrorPolicyID(provider string) string {
	return strings.ToUpper(provider) + collectionErrorSuffix
}

// IsEngineFinding reports whether a policy id denotes an internal evaluation
// failure instead of a security violation.
func IsEngineFinding(policyID string) bool {
	return strings.HasPrefix(policyID, EngineErrorPolicyID) ||
		strings.HasSuffix(policyID, collectionErrorSuffix)
}

// Resource is one normalized cloud resource snapshot handed over by the
// collector. It is read-only for the engine; the attribute set is whatever
// the provider API returned, flattened to JSON-compatible values.
type Resource struct {
	ID        string
	Provider  string
	Kind      string
	AccountID string
	Region    string

	Attributes map[string]any

	// CollectionError is set when the collector could not fully enumerate
	// this resource. Policy checks are skipped for such snapshots.
	CollectionError string
}

// Str returns the string attribute for key, or "" when absent or not a string.
func (r Resource) Str(key string) string {
	s, _ := r.Attributes[key].(string)
	return s
}

// Bool returns the boolean attribute for key. Collectors sometimes serialize
// booleans as strings, so "true"/"false" are accepted too.
func (r Resource) Bool(key string) bool {
	switch v := r.Attributes[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// Int returns the numeric attribute for key as an int. JSON numbers arrive as
// float64; json.Number shows up when decoders use UseNumber.
func (r Resource) Int(key string) int {
	switch v := r.Attributes[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case fmt.Stringer:
		var n int
		if _, err := fmt.Sscanf(v.String(), "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

// StrSlice returns the attribute for key as a string slice.
func (r Resource) StrSlice(key string) []string {
	switch v := r.Attributes[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// MapSlice returns the attribute for key as a slice of objects, the shape
// nested collections (security group rules, IAM bindings) arrive in.
func (r Resource) MapSlice(key string) []map[string]any {
	items, ok := r.Attributes[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Has reports whether the attribute is present at all.
func (r Resource) Has(key string) bool {
	_, ok := r.Attributes[key]
	return ok
}

// Finding is the ephemeral result of one policy check against one resource.
// It is never persisted directly; the alert store consumes it immediately.
type Finding struct {
	ResourceID     string
	ResourceKind   string
	AccountID      string
	Region         string
	Provider       string
	Severity       models.Severity
	Title          string
	Description    string
	PolicyID       string
	Details        models.Details
	Recommendation string
}

// CheckFunc inspects one resource and returns a finding when the policy is
// violated, nil when compliant. Checks only need to populate the evidence
// fields (usually just Details); Definition.Evaluate fills the rest from the
// policy metadata and the resource identity. Errors and panics are contained
// by the evaluator and surfaced as engine-error findings.
type CheckFunc func(res Resource) (*Finding, error)

// Definition is an immutable, compiled-in policy: identity and rating plus
// the check bound to one (provider, resource kind) variant.
type Definition struct {
	PolicyID       string
	Title          string
	Description    string
	Severity       models.Severity
	Recommendation string
	Provider       string
	ResourceKind   string
	Check          CheckFunc
}

// Applies reports whether the definition targets the given resource variant.
func (d Definition) Applies(provider, kind string) bool {
	return d.Provider == provider && d.ResourceKind == kind
}

// Evaluate runs the check and, when it flags a violation, completes the
// finding with the definition's metadata and the resource's identity. Fields
// the check set explicitly (e.g. an escalated severity) are kept.
func (d Definition) Evaluate(res Resource) (*Finding, error) {
	f, err := d.Check(res)
	if f == nil || err != nil {
		return nil, err
	}

	f.ResourceID = res.ID
	f.ResourceKind = res.Kind
	f.AccountID = res.AccountID
	f.Region = res.Region
	f.Provider = res.Provider
	if f.PolicyID == "" {
		f.PolicyID = d.PolicyID
	}
	if f.Severity == "" {
		f.Severity = d.Severity
	}
	if f.Title == "" {
		f.Title = d.Title
	}
	if f.Description == "" {
		f.Description = d.Description
	}
	if f.Recommendation == "" {
		f.Recommendation = d.Recommendation
	}
	return f, nil
}
