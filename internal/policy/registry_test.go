package policy_test

import (
	"testing"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
	"github.com/hugh/go-warden/internal/policy/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopCheck(res policy.Resource) (*policy.Finding, error) {
	return nil, nil
}

func def(id, provider, kind string) policy.Definition {
	return policy.Definition{
		PolicyID:     id,
		Severity:     models.SeverityLow,
		Provider:     provider,
		ResourceKind: kind,
		Check:        noopCheck,
	}
}

func TestNewRegistry_GroupsByVariant(t *testing.T) {
	registry, err := policy.NewRegistry([]policy.Definition{
		def("P1", "aws", "S3Bucket"),
		def("P2", "aws", "S3Bucket"),
		def("P3", "gcp", "StorageBucket"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, registry.Len())

	s3 := registry.Lookup("aws", "S3Bucket")
	require.Len(t, s3, 2)
	// Registration order is preserved within a variant.
	assert.Equal(t, "P1", s3[0].PolicyID)
	assert.Equal(t, "P2", s3[1].PolicyID)
}

func TestNewRegistry_RejectsDuplicateIDs(t *testing.T) {
	_, err := policy.NewRegistry([]policy.Definition{
		def("P1", "aws", "S3Bucket"),
		def("P1", "aws", "EC2Instance"),
	})
	assert.Error(t, err)
}

func TestNewRegistry_RejectsMalformedDefinitions(t *testing.T) {
	t.Run("empty id", func(t *testing.T) {
		_, err := policy.NewRegistry([]policy.Definition{def("", "aws", "S3Bucket")})
		assert.Error(t, err)
	})

	t.Run("nil check", func(t *testing.T) {
		broken := def("P1", "aws", "S3Bucket")
		broken.Check = nil
		_, err := policy.NewRegistry([]policy.Definition{broken})
		assert.Error(t, err)
	})
}

func TestRegistry_LookupUnknownVariantIsEmpty(t *testing.T) {
	registry, err := policy.NewRegistry([]policy.Definition{def("P1", "aws", "S3Bucket")})
	require.NoError(t, err)

	assert.Empty(t, registry.Lookup("aws", "NoSuchKind"))
	assert.Empty(t, registry.Lookup("azure", "S3Bucket"))
}

func TestCollectionErrorPolicyID(t *testing.T) {
	assert.Equal(t, "AWS_Collection_Error", policy.CollectionErrorPolicyID("aws"))
	assert.Equal(t, "AZURE_Collection_Error", policy.CollectionErrorPolicyID("azure"))
}

func TestIsEngineFinding(t *testing.T) {
	assert.True(t, policy.IsEngineFinding(policy.EngineErrorPolicyID))
	assert.True(t, policy.IsEngineFinding("GCP_Collection_Error"))
	assert.False(t, policy.IsEngineFinding("S3_Public_Policy"))
}

func TestDefinition_EvaluateFillsMetadata(t *testing.T) {
	d := policy.Definition{
		PolicyID:       "Test_Policy",
		Title:          "Test title",
		Description:    "Test description",
		Severity:       models.SeverityHigh,
		Recommendation: "Fix it.",
		Provider:       "aws",
		ResourceKind:   "S3Bucket",
		Check: func(res policy.Resource) (*policy.Finding, error) {
			details := models.Details{}
			details.Set("evidence", "value")
			return &policy.Finding{Details: details}, nil
		},
	}

	res := policy.Resource{
		ID:        "bucket-1",
		Provider:  "aws",
		Kind:      "S3Bucket",
		AccountID: "111122223333",
		Region:    "eu-west-1",
	}

	f, err := d.Evaluate(res)
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, "Test_Policy", f.PolicyID)
	assert.Equal(t, "Test title", f.Title)
	assert.Equal(t, models.SeverityHigh, f.Severity)
	assert.Equal(t, "bucket-1", f.ResourceID)
	assert.Equal(t, "eu-west-1", f.Region)
	assert.Equal(t, "111122223333", f.AccountID)
}

func TestDefinition_EvaluateKeepsEscalatedSeverity(t *testing.T) {
	d := policy.Definition{
		PolicyID:     "Test_Policy",
		Severity:     models.SeverityMedium,
		Provider:     "aws",
		ResourceKind: "S3Bucket",
		Check: func(res policy.Resource) (*policy.Finding, error) {
			return &policy.Finding{Severity: models.SeverityCritical}, nil
		},
	}

	f, err := d.Evaluate(policy.Resource{ID: "bucket-1", Provider: "aws", Kind: "S3Bucket"})
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, models.SeverityCritical, f.Severity)
}

func TestCatalog_BuildsCleanly(t *testing.T) {
	registry, err := catalog.Default()
	require.NoError(t, err)
	assert.Greater(t, registry.Len(), 20)

	// Every provider package contributes at least one variant.
	assert.NotEmpty(t, registry.Lookup("aws", "S3Bucket"))
	assert.NotEmpty(t, registry.Lookup("azure", "StorageAccount"))
	assert.NotEmpty(t, registry.Lookup("gcp", "FirewallRule"))
}
