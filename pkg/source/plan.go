// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"slices"

	"github.com/strata-dev/strata/internal/dag"
	"github.com/strata-dev/strata/pkg/types"
)

// CoreModule is always installed, and always first.
const CoreModule types.ModuleID = "core"

type (
	// Plan is the ordered set of modules one install run processes.
	Plan struct {
		// Sources are in dependency order.
		Sources []ModuleSource
		// Unavailable lists modules that could not be resolved, in request order.
		Unavailable []Unavailable
	}

	// Unavailable is a planned module no tier could provide.
	Unavailable struct {
		ID  types.ModuleID
		Err error
	}
)

// BuildPlan resolves core, the selected modules and their declared
// dependencies (one level) and orders them so dependencies come first.
// Unresolvable modules are reported in Plan.Unavailable. A dependency cycle
// among resolved modules is returned as a *dag.CycleError.
func BuildPlan(ctx context.Context, r *Resolver, selected []types.ModuleID) (*Plan, error) {
	plan := &Plan{}
	requested := []types.ModuleID{CoreModule}
	for _, id := range selected {
		if !slices.Contains(requested, id) {
			requested = append(requested, id)
		}
	}

	byID := make(map[types.ModuleID]ModuleSource)
	var order []types.ModuleID
	resolve := func(id types.ModuleID) ModuleSource {
		if src, ok := byID[id]; ok {
			return src
		}
		if slices.ContainsFunc(plan.Unavailable, func(u Unavailable) bool { return u.ID == id }) {
			return nil
		}
		src, err := r.Resolve(ctx, id)
		if err != nil {
			plan.Unavailable = append(plan.Unavailable, Unavailable{ID: id, Err: err})
			return nil
		}
		byID[id] = src
		order = append(order, id)
		return src
	}

	var roots []ModuleSource
	for _, id := range requested {
		if src := resolve(id); src != nil {
			roots = append(roots, src)
		}
	}
	for _, src := range roots {
		for _, dep := range src.Dependencies() {
			resolve(dep)
		}
	}

	g := dag.New()
	for _, id := range order {
		g.AddNode(string(id))
	}
	for _, id := range order {
		if id != CoreModule && byID[CoreModule] != nil {
			g.AddEdge(string(CoreModule), string(id))
		}
		for _, dep := range byID[id].Dependencies() {
			if _, ok := byID[dep]; ok && dep != CoreModule {
				g.AddEdge(string(dep), string(id))
			}
		}
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	for _, id := range sorted {
		plan.Sources = append(plan.Sources, byID[types.ModuleID(id)])
	}
	return plan, nil
}

// IDs returns the planned module ids in order.
func (p *Plan) IDs() []types.ModuleID {
	ids := make([]types.ModuleID, len(p.Sources))
	for i, src := range p.Sources {
		ids[i] = src.ID()
	}
	return ids
}
