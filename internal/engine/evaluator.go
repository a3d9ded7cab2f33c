// Package engine runs the policy battery over resource snapshot batches.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

const defaultWorkers = 8

// Evaluator turns a batch of resource snapshots into findings. It has no
// side effects: the registry is read-only and resources are never mutated,
// so one evaluator is safe for any number of concurrent batches.
type Evaluator struct {
	registry *policy.Registry
	logger   *slog.Logger
	workers  int
}

func NewEvaluator(registry *policy.Registry, logger *slog.Logger, workers int) *Evaluator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Evaluator{
		registry: registry,
		logger:   logger,
		workers:  workers,
	}
}

// Evaluate runs every applicable policy against every resource in the batch.
// Resources are independent and evaluated in parallel up to the worker bound;
// results are merged back in snapshot order so output is deterministic.
//
// Nothing here is fatal: collection failures and crashing policies degrade to
// synthetic findings so one bad resource or check never hides the rest of the
// batch.
func (e *Evaluator) Evaluate(ctx context.Context, resources []policy.Resource, accountID string) []policy.Finding {
	perResource := make([][]policy.Finding, len(resources))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers)

	for i, res := range resources {
		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore

		go func(i int, res policy.Resource) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore
			perResource[i] = e.evaluateResource(ctx, res, accountID)
		}(i, res)
	}

	wg.Wait()

	var findings []policy.Finding
	for _, fs := range perResource {
		findings = append(findings, fs...)
	}
	return findings
}

func (e *Evaluator) evaluateResource(ctx context.Context, res policy.Resource, accountID string) []policy.Finding {
	if res.AccountID == "" {
		res.AccountID = accountID
	}

	// A snapshot the collector could not enumerate gets one informational
	// finding instead of policy checks; an empty resource id means the whole
	// batch failed upstream and the finding is scoped to the account.
	if res.CollectionError != "" {
		return []policy.Finding{e.collectionErrorFinding(res)}
	}

	defs := e.registry.Lookup(res.Provider, res.Kind)
	if len(defs) == 0 {
		e.logger.Debug("no policies registered",
			"provider", res.Provider,
			"resource_kind", res.Kind,
		)
		return nil
	}

	var findings []policy.Finding
	for _, def := range defs {
		if ctx.Err() != nil {
			break
		}
		f, err := e.runCheck(def, res)
		if err != nil {
			findings = append(findings, e.engineErrorFinding(def, res, err))
			continue
		}
		if f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

// runCheck executes one policy check, converting a panic into an error so a
// buggy check can never take down the batch.
func (e *Evaluator) runCheck(def policy.Definition, res policy.Resource) (f *policy.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			f = nil
			err = fmt.Errorf("policy %s panicked: %v", def.PolicyID, r)
		}
	}()
	return def.Evaluate(res)
}

func (e *Evaluator) collectionErrorFinding(res policy.Resource) policy.Finding {
	resourceID := res.ID
	scope := "resource"
	if resourceID == "" {
		resourceID = res.AccountID
		scope = "account"
	}

	details := models.Details{}
	details.Set("error", res.CollectionError)
	details.Set("scope", scope)

	return policy.Finding{
		ResourceID:     resourceID,
		ResourceKind:   res.Kind,
		AccountID:      res.AccountID,
		Region:         res.Region,
		Provider:       res.Provider,
		Severity:       models.SeverityInfo,
		Title:          "Resource collection failed",
		Description:    res.CollectionError,
		PolicyID:       policy.CollectionErrorPolicyID(res.Provider),
		Details:        details,
		Recommendation: "Check the collector's credentials and permissions for this account.",
	}
}

func (e *Evaluator) engineErrorFinding(def policy.Definition, res policy.Resource, checkErr error) policy.Finding {
	e.logger.Error("policy check failed",
		"policy_id", def.PolicyID,
		"resource_id", res.ID,
		"error", checkErr,
	)

	details := models.Details{}
	details.Set("failed_policy_id", def.PolicyID)
	details.Set("resource_id", res.ID)
	details.Set("error", checkErr.Error())

	return policy.Finding{
		ResourceID:   res.ID,
		ResourceKind: res.Kind,
		AccountID:    res.AccountID,
		Region:       res.Region,
		Provider:     res.Provider,
		Severity:     models.SeverityMedium,
		Title:        "Policy evaluation error",
		Description:  fmt.Sprintf("Policy %s could not be evaluated against resource %s.", def.PolicyID, res.ID),
		PolicyID:     policy.EngineErrorPolicyID,
		Details:      details,
	}
}
