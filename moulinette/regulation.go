package moulinette

import (
	"fmt"
	"sort"
)

// RegulationEvaluation is the reduced outcome of one regulation.
type RegulationEvaluation struct {
	Slug             string            `json:"slug"`
	Result           Result            `json:"result"`
	ProcedureType    ProcedureType     `json:"procedure_type,omitempty"`
	Criteria         []Evaluation      `json:"criteria"`
	PerimeterResults map[string]Result `json:"perimeter_results,omitempty"`

	// ReplantationR is the replantation coefficient this regulation
	// contributes to the plantation evaluation. DeclaresR distinguishes a
	// declared zero from no declaration at all.
	ReplantationR float64 `json:"replantation_coefficient,omitempty"`
	DeclaresR     bool    `json:"-"`
}

// selectedCriterion pairs a criterion config with its constructed
// evaluator and activation distance.
type selectedCriterion struct {
	config    *CriterionConfig
	evaluator Evaluator
	distanceM float64
	mapName   string
}

// orderCriteria sorts criteria by (weight, slug) then adjusts for declared
// same-regulation dependencies with a stable topological sort. A
// dependency cycle is a configuration error.
func orderCriteria(reg *RegulationConfig, selected []selectedCriterion) ([]selectedCriterion, error) {
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].config.Weight != selected[j].config.Weight {
			return selected[i].config.Weight < selected[j].config.Weight
		}
		return selected[i].config.Slug < selected[j].config.Slug
	})

	index := make(map[string]int, len(selected))
	for i, sc := range selected {
		index[sc.config.Slug] = i
	}

	// deps[i] holds indexes that must run before i.
	deps := make(map[int][]int)
	for i, sc := range selected {
		dep, ok := sc.evaluator.(Dependent)
		if !ok {
			continue
		}
		for _, ref := range dep.Requires() {
			if ref.Regulation != reg.Slug {
				continue
			}
			if j, ok := index[ref.Criterion]; ok {
				deps[i] = append(deps[i], j)
			}
		}
	}
	if len(deps) == 0 {
		return selected, nil
	}

	done := make([]bool, len(selected))
	ordered := make([]selectedCriterion, 0, len(selected))
	for len(ordered) < len(selected) {
		progressed := false
		for i := range selected {
			if done[i] {
				continue
			}
			ready := true
			for _, j := range deps[i] {
				if !done[j] {
					ready = false
					break
				}
			}
			if ready {
				done[i] = true
				ordered = append(ordered, selected[i])
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("regulation %s: criterion dependency cycle", reg.Slug)
		}
	}
	return ordered, nil
}

// evaluateRegulation runs the regulation's activated criteria in order and
// reduces their results.
func (m *Moulinette) evaluateRegulation(ctx *Context, reg *RegulationConfig, selected []selectedCriterion, perimetersActive []string) (RegulationEvaluation, error) {
	ordered, err := orderCriteria(reg, selected)
	if err != nil {
		return RegulationEvaluation{}, err
	}

	out := RegulationEvaluation{Slug: reg.Slug}
	results := make([]Result, 0, len(ordered))
	for _, sc := range ordered {
		critCtx := *ctx
		critCtx.Regulation = reg
		critCtx.Criterion = sc.config
		critCtx.Distance = sc.distanceM

		ev, err := sc.evaluator.Evaluate(&critCtx)
		if err != nil {
			return RegulationEvaluation{}, fmt.Errorf("evaluate %s.%s: %w", reg.Slug, sc.config.Slug, err)
		}
		ev.RegulationSlug = reg.Slug
		ev.CriterionSlug = sc.config.Slug
		ev.DistanceM = sc.distanceM
		if ev.MapName == "" {
			ev.MapName = sc.mapName
		}

		ctx.results[CriterionRef{reg.Slug, sc.config.Slug}.String()] = ev
		out.Criteria = append(out.Criteria, ev)
		results = append(results, ev.Result)

		if p, ok := sc.evaluator.(ReplantationProvider); ok {
			r := p.ReplantationCoefficient(&critCtx, ev)
			if !out.DeclaresR || r > out.ReplantationR {
				out.ReplantationR = r
				out.DeclaresR = true
			}
		}
	}

	out.Result = CascadeReduce(results)

	// A perimeter-bound regulation with no perimeter reaching the project
	// cannot conclude anything.
	if reg.HasPerimeters && len(perimetersActive) == 0 {
		out.Result = ResultNonDisponible
	}

	if pt, ok := reg.ProcedureMatrix[out.Result]; ok {
		out.ProcedureType = pt
	}

	if len(reg.Perimeters) > 1 {
		out.PerimeterResults = perimeterResults(reg, out.Criteria)
	}
	return out, nil
}

// perimeterResults reduces criteria results per linked perimeter.
func perimeterResults(reg *RegulationConfig, criteria []Evaluation) map[string]Result {
	byPerimeter := make(map[string][]Result)
	linked := make(map[string]string, len(reg.Criteria))
	for _, crit := range reg.Criteria {
		if crit.Perimeter != "" {
			linked[crit.Slug] = crit.Perimeter
		}
	}
	for _, ev := range criteria {
		if pid, ok := linked[ev.CriterionSlug]; ok {
			byPerimeter[pid] = append(byPerimeter[pid], ev.Result)
		}
	}
	if len(byPerimeter) == 0 {
		return nil
	}
	out := make(map[string]Result, len(byPerimeter))
	for pid, results := range byPerimeter {
		out[pid] = CascadeReduce(results)
	}
	return out
}

// mergeActions unions regulation- and criterion-level action
// contributions, then removes subtractions, and flattens the survivors per
// target audience ordered by the display catalog.
func (m *Moulinette) mergeActions(regs []RegulationEvaluation, cfg *DepartmentConfig) map[string][]string {
	toAdd := make(map[string]bool)
	toSubtract := make(map[string]bool)

	apply := func(spec *ActionsSpec) {
		if spec == nil {
			return
		}
		for _, slug := range spec.ToAdd {
			toAdd[slug] = true
		}
		for _, slug := range spec.ToSubtract {
			toSubtract[slug] = true
		}
	}

	for _, re := range regs {
		regCfg := cfg.Regulation(re.Slug)
		if regCfg == nil {
			continue
		}
		apply(regCfg.Actions[string(re.Result)])
		for _, ev := range re.Criteria {
			for _, crit := range regCfg.Criteria {
				if crit.Slug != ev.CriterionSlug {
					continue
				}
				if spec, ok := crit.Actions[ev.ResultCode]; ok {
					apply(spec)
				} else {
					apply(crit.Actions[string(ev.Result)])
				}
			}
		}
	}

	var kept []ActionDisplay
	for slug := range toAdd {
		if toSubtract[slug] {
			continue
		}
		kept = append(kept, m.configs.Action(slug))
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Order != kept[j].Order {
			return kept[i].Order < kept[j].Order
		}
		return kept[i].Slug < kept[j].Slug
	})

	out := make(map[string][]string)
	for _, a := range kept {
		out[a.Target] = append(out[a.Target], a.Slug)
	}
	return out
}
