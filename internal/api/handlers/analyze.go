package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hugh/go-warden/internal/alerts"
	"github.com/hugh/go-warden/internal/api/dto"
	"github.com/hugh/go-warden/internal/policy"
)

type AnalyzeHandler struct {
	service *alerts.AnalyzeService
}

func NewAnalyzeHandler(service *alerts.AnalyzeService) *AnalyzeHandler {
	return &AnalyzeHandler{service: service}
}

// AnalyzeRequest is one scan invocation from the collector: a batch of
// provider/service-specific snapshots for one account.
type AnalyzeRequest struct {
	Provider  string           `json:"provider"`
	Service   string           `json:"service"`
	AccountID string           `json:"account_id"`
	Data      []map[string]any `json:"data"`
}

type AnalyzeResponse struct {
	BatchID string      `json:"batch_id"`
	Alerts  interface{} `json:"alerts"`
}

// serviceKinds maps the collector's service names onto registered resource
// kinds per provider. A snapshot can override this with its own
// "resource_kind" field; an unmapped service passes through as the kind
// (lookup on an unknown kind just yields no policies).
var serviceKinds = map[string]map[string]string{
	"aws": {
		"s3":              "S3Bucket",
		"ec2":             "EC2Instance",
		"security_groups": "SecurityGroup",
		"iam":             "IAMUser",
	},
	"azure": {
		"storage": "StorageAccount",
		"network": "NetworkSecurityGroup",
		"compute": "VirtualMachine",
	},
	"gcp": {
		"storage":  "StorageBucket",
		"firewall": "FirewallRule",
		"gke":      "GKECluster",
	},
}

// Analyze handles POST /api/v1/analyze
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Provider == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "provider is required"})
		return
	}

	resources := make([]policy.Resource, 0, len(req.Data))
	for _, item := range req.Data {
		resources = append(resources, snapshotToResource(req, item))
	}

	batchID, upserted, err := h.service.Analyze(r.Context(), resources, req.AccountID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Analysis could not be persisted"})
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		BatchID: batchID,
		Alerts:  upserted,
	})
}

// snapshotToResource lifts one free-form snapshot into the typed resource the
// evaluator consumes. Identity fields are plucked from well-known keys; the
// whole map stays available to checks as attributes.
func snapshotToResource(req AnalyzeRequest, item map[string]any) policy.Resource {
	res := policy.Resource{
		Provider:   req.Provider,
		AccountID:  req.AccountID,
		Attributes: item,
	}

	res.Kind = req.Service
	if mapped, ok := serviceKinds[req.Provider][req.Service]; ok {
		res.Kind = mapped
	}
	if kind, ok := item["resource_kind"].(string); ok && kind != "" {
		res.Kind = kind
	}

	for _, key := range []string{"resource_id", "id", "name"} {
		if id, ok := item[key].(string); ok && id != "" {
			res.ID = id
			break
		}
	}
	for _, key := range []string{"region", "location"} {
		if region, ok := item[key].(string); ok && region != "" {
			res.Region = region
			break
		}
	}
	if account, ok := item["account_id"].(string); ok && account != "" {
		res.AccountID = account
	}
	if errDetails, ok := item["error_details"].(string); ok {
		res.CollectionError = errDetails
	}

	return res
}
