package gcp_test

import (
	"testing"

	"github.com/hugh/go-warden/internal/policy"
	"github.com/hugh/go-warden/internal/policy/gcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluate(t *testing.T, id string, res policy.Resource) *policy.Finding {
	t.Helper()
	for _, def := range gcp.Policies() {
		if def.PolicyID == id {
			f, err := def.Evaluate(res)
			require.NoError(t, err)
			return f
		}
	}
	t.Fatalf("policy %s not registered", id)
	return nil
}

func TestBucketPublicIAM(t *testing.T) {
	bucket := func(bindings ...map[string]any) policy.Resource {
		items := make([]any, 0, len(bindings))
		for _, b := range bindings {
			items = append(items, b)
		}
		return policy.Resource{
			ID:         "prod-archive",
			Provider:   gcp.Provider,
			Kind:       gcp.KindStorageBucket,
			Attributes: map[string]any{"iam_bindings": items},
		}
	}

	t.Run("allUsers binding", func(t *testing.T) {
		f := evaluate(t, "GCP_Bucket_Public_IAM", bucket(
			map[string]any{"role": "roles/storage.objectViewer", "members": []any{"allUsers"}},
			map[string]any{"role": "roles/storage.admin", "members": []any{"group:ops@example.com"}},
		))
		require.NotNil(t, f)

		_, ok := f.Details.Get("public_bindings")
		assert.True(t, ok)
	})

	t.Run("scoped bindings pass", func(t *testing.T) {
		f := evaluate(t, "GCP_Bucket_Public_IAM", bucket(
			map[string]any{"role": "roles/storage.objectViewer", "members": []any{"group:eng@example.com"}},
		))
		assert.Nil(t, f)
	})
}

func TestBucketUniformAccess(t *testing.T) {
	res := policy.Resource{
		ID:         "prod-archive",
		Provider:   gcp.Provider,
		Kind:       gcp.KindStorageBucket,
		Attributes: map[string]any{"uniform_bucket_level_access": false},
	}
	assert.NotNil(t, evaluate(t, "GCP_Bucket_No_Uniform_Access", res))

	res.Attributes["uniform_bucket_level_access"] = true
	assert.Nil(t, evaluate(t, "GCP_Bucket_No_Uniform_Access", res))
}

func firewall(attrs map[string]any) policy.Resource {
	return policy.Resource{
		ID:         "default-allow-ssh",
		Provider:   gcp.Provider,
		Kind:       gcp.KindFirewallRule,
		Attributes: attrs,
	}
}

func TestFirewallOpenSSH(t *testing.T) {
	t.Run("world-open tcp 22", func(t *testing.T) {
		f := evaluate(t, "GCP_Firewall_Open_SSH", firewall(map[string]any{
			"direction":     "INGRESS",
			"network":       "default",
			"source_ranges": []any{"0.0.0.0/0"},
			"allowed": []any{
				map[string]any{"protocol": "tcp", "ports": []any{"22"}},
			},
		}))
		require.NotNil(t, f)

		port, ok := f.Details.Get("port")
		require.True(t, ok)
		assert.Equal(t, "22", port)
	})

	t.Run("port range covering 22", func(t *testing.T) {
		f := evaluate(t, "GCP_Firewall_Open_SSH", firewall(map[string]any{
			"direction":     "INGRESS",
			"source_ranges": []any{"0.0.0.0/0"},
			"allowed": []any{
				map[string]any{"protocol": "tcp", "ports": []any{"20-100"}},
			},
		}))
		assert.NotNil(t, f)
	})

	t.Run("all-protocol rule with no ports matches", func(t *testing.T) {
		f := evaluate(t, "GCP_Firewall_Open_SSH", firewall(map[string]any{
			"direction":     "INGRESS",
			"source_ranges": []any{"0.0.0.0/0"},
			"allowed": []any{
				map[string]any{"protocol": "all"},
			},
		}))
		assert.NotNil(t, f)
	})

	t.Run("egress rule passes", func(t *testing.T) {
		f := evaluate(t, "GCP_Firewall_Open_SSH", firewall(map[string]any{
			"direction":     "EGRESS",
			"source_ranges": []any{"0.0.0.0/0"},
			"allowed": []any{
				map[string]any{"protocol": "tcp", "ports": []any{"22"}},
			},
		}))
		assert.Nil(t, f)
	})

	t.Run("disabled rule passes", func(t *testing.T) {
		f := evaluate(t, "GCP_Firewall_Open_SSH", firewall(map[string]any{
			"direction":     "INGRESS",
			"disabled":      true,
			"source_ranges": []any{"0.0.0.0/0"},
			"allowed": []any{
				map[string]any{"protocol": "tcp", "ports": []any{"22"}},
			},
		}))
		assert.Nil(t, f)
	})

	t.Run("internal source passes", func(t *testing.T) {
		f := evaluate(t, "GCP_Firewall_Open_SSH", firewall(map[string]any{
			"direction":     "INGRESS",
			"source_ranges": []any{"10.128.0.0/9"},
			"allowed": []any{
				map[string]any{"protocol": "tcp", "ports": []any{"22"}},
			},
		}))
		assert.Nil(t, f)
	})
}

func TestGKEChecks(t *testing.T) {
	cluster := func(attrs map[string]any) policy.Resource {
		return policy.Resource{
			ID:         "prod-cluster",
			Provider:   gcp.Provider,
			Kind:       gcp.KindGKECluster,
			Attributes: attrs,
		}
	}

	t.Run("public endpoint without authorized networks", func(t *testing.T) {
		f := evaluate(t, "GCP_GKE_Public_Endpoint", cluster(map[string]any{
			"private_endpoint_enabled": false,
			"endpoint":                 "203.0.113.20",
		}))
		assert.NotNil(t, f)
	})

	t.Run("authorized networks mitigate", func(t *testing.T) {
		f := evaluate(t, "GCP_GKE_Public_Endpoint", cluster(map[string]any{
			"private_endpoint_enabled":           false,
			"master_authorized_networks_enabled": true,
			"master_authorized_networks":         []any{"192.0.2.0/24"},
		}))
		assert.Nil(t, f)
	})

	t.Run("world-open authorized network does not mitigate", func(t *testing.T) {
		f := evaluate(t, "GCP_GKE_Public_Endpoint", cluster(map[string]any{
			"private_endpoint_enabled":           false,
			"master_authorized_networks_enabled": true,
			"master_authorized_networks":         []any{"0.0.0.0/0"},
		}))
		assert.NotNil(t, f)
	})

	t.Run("legacy abac", func(t *testing.T) {
		f := evaluate(t, "GCP_GKE_Legacy_ABAC", cluster(map[string]any{
			"legacy_abac_enabled": true,
		}))
		assert.NotNil(t, f)

		f = evaluate(t, "GCP_GKE_Legacy_ABAC", cluster(map[string]any{
			"legacy_abac_enabled": false,
		}))
		assert.Nil(t, f)
	})
}
