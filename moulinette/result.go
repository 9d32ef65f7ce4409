// Package moulinette implements the evaluation engine: result cascade,
// criterion and regulation evaluation, and the orchestrator tying them to
// the geospatial index and the lazy catalog.
package moulinette

import "fmt"

// Result is the closed enum of evaluation outcomes.
type Result string

const (
	ResultInterdit             Result = "interdit"
	ResultSystematique         Result = "systematique"
	ResultCasParCas            Result = "cas_par_cas"
	ResultSoumis               Result = "soumis"
	ResultSoumisOuPac          Result = "soumis_ou_pac"
	ResultSoumisDeclaration    Result = "soumis_declaration"
	ResultSoumisAutorisation   Result = "soumis_autorisation"
	ResultDerogationInventaire Result = "derogation_inventaire"
	ResultDerogationSimplifiee Result = "derogation_simplifiee"
	ResultDispenseSousCond     Result = "dispense_sous_condition"
	ResultActionRequise        Result = "action_requise"
	ResultAVerifier            Result = "a_verifier"
	ResultIotaAVerifier        Result = "iota_a_verifier"
	ResultNonSoumis            Result = "non_soumis"
	ResultDispense             Result = "dispense"
	ResultNonConcerne          Result = "non_concerne"
	ResultNonDisponible        Result = "non_disponible"
	ResultNonApplicable        Result = "non_applicable"
	ResultNonActive            Result = "non_active"
)

// CascadeOrder lists every result from most to least severe. Reductions
// walk this order and keep the first value present.
var CascadeOrder = []Result{
	ResultInterdit,
	ResultSystematique,
	ResultCasParCas,
	ResultSoumis,
	ResultSoumisOuPac,
	ResultSoumisDeclaration,
	ResultSoumisAutorisation,
	ResultDerogationInventaire,
	ResultDerogationSimplifiee,
	ResultDispenseSousCond,
	ResultActionRequise,
	ResultAVerifier,
	ResultIotaAVerifier,
	ResultNonSoumis,
	ResultDispense,
	ResultNonConcerne,
	ResultNonDisponible,
	ResultNonApplicable,
	ResultNonActive,
}

var cascadeRank = func() map[Result]int {
	m := make(map[Result]int, len(CascadeOrder))
	for i, r := range CascadeOrder {
		m[r] = i
	}
	return m
}()

// Valid reports whether r belongs to the closed enum.
func (r Result) Valid() bool {
	_, ok := cascadeRank[r]
	return ok
}

// Severity returns the cascade rank, lower being more severe.
func (r Result) Severity() int {
	rank, ok := cascadeRank[r]
	if !ok {
		return len(CascadeOrder)
	}
	return rank
}

// CascadeReduce collapses results to the most severe one. Inactive
// criteria never take part in a cascade and are skipped. An empty or
// all-inactive list reduces to non_disponible.
func CascadeReduce(results []Result) Result {
	best := -1
	for _, r := range results {
		if r == ResultNonActive {
			continue
		}
		if rank, ok := cascadeRank[r]; ok && (best < 0 || rank < best) {
			best = rank
		}
	}
	if best < 0 {
		return ResultNonDisponible
	}
	return CascadeOrder[best]
}

// globalReduction maps every detailed result to the coarse global verdict.
// Exhaustiveness over the enum is checked at startup.
var globalReduction = map[Result]Result{
	ResultInterdit:             ResultInterdit,
	ResultSystematique:         ResultSoumis,
	ResultCasParCas:            ResultSoumis,
	ResultSoumis:               ResultSoumis,
	ResultSoumisOuPac:          ResultSoumis,
	ResultSoumisDeclaration:    ResultSoumis,
	ResultSoumisAutorisation:   ResultSoumis,
	ResultDerogationInventaire: ResultSoumis,
	ResultDerogationSimplifiee: ResultSoumis,
	ResultDispenseSousCond:     ResultSoumis,
	ResultActionRequise:        ResultActionRequise,
	ResultAVerifier:            ResultActionRequise,
	ResultIotaAVerifier:        ResultActionRequise,
	ResultNonSoumis:            ResultNonSoumis,
	ResultDispense:             ResultNonSoumis,
	ResultNonConcerne:          ResultNonSoumis,
	ResultNonDisponible:        ResultNonDisponible,
	ResultNonApplicable:        ResultNonSoumis,
	ResultNonActive:            ResultNonSoumis,
}

func init() {
	for _, r := range CascadeOrder {
		if _, ok := globalReduction[r]; !ok {
			panic(fmt.Sprintf("global reduction matrix misses result %q", r))
		}
	}
}

// GlobalResult reduces a detailed result to the global verdict space
// {interdit, soumis, action_requise, non_soumis, non_disponible}.
func GlobalResult(r Result) Result {
	g, ok := globalReduction[r]
	if !ok {
		return ResultNonDisponible
	}
	return g
}

// ProcedureType is the single-procedure constraint a hedge regulation
// contributes.
type ProcedureType string

const (
	ProcedureInterdit     ProcedureType = "interdit"
	ProcedureAutorisation ProcedureType = "autorisation"
	ProcedureDeclaration  ProcedureType = "declaration"
)

// GlobalHorsRegimeUnique is the hedge-variant global verdict when every
// removed hedge is a tree alignment, which the single procedure does not
// cover.
const GlobalHorsRegimeUnique Result = "hors_regime_unique"
