package obligation

import (
	"github.com/danharker/lexsem/token"
)

// Fact is one entry of an externally supplied fact.envelope.v1.
type Fact struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	At     string `json:"at,omitempty"`
	Source string `json:"source"`
}

// ActivationResult is the obligation.activation.v1 payload. Every OBL-ID
// lands in exactly one of the three lists, with a reason code per ID.
type ActivationResult struct {
	Active     []string          `json:"active"`
	Inactive   []string          `json:"inactive"`
	Terminated []string          `json:"terminated"`
	Reasons    map[string]string `json:"reasons"`
}

// Activation reason codes.
const (
	ReasonNoTrigger      = "no_lifecycle_trigger"
	ReasonNoMatchingFact = "no_matching_fact"
	ReasonActivated      = "activation_fact_matched"
	ReasonTerminated     = "termination_fact_matched"
)

// Activate evaluates lifecycle state for atoms against supplied facts.
// Activation happens only on an exact (folded) fact-key match to the
// atom's lifecycle trigger text — nothing is ever inferred. Atoms
// without lifecycle phrasing are inactive by definition; a matched
// termination fact wins over a matched activation fact.
func Activate(atoms []Atom, ids []Identity, facts []Fact) ActivationResult {
	factKeys := make(map[string]bool, len(facts))
	for _, f := range facts {
		factKeys[token.Fold(f.Key)] = true
	}

	res := ActivationResult{
		Active:     []string{},
		Inactive:   []string{},
		Terminated: []string{},
		Reasons:    make(map[string]string, len(atoms)),
	}

	for i, a := range atoms {
		id := ids[i].Hash
		switch {
		case a.Lifecycle.TerminationTrigger != "" && factKeys[token.Fold(a.Lifecycle.TerminationTrigger)]:
			res.Terminated = append(res.Terminated, id)
			res.Reasons[id] = ReasonTerminated
		case a.Lifecycle.ActivationTrigger != "" && factKeys[token.Fold(a.Lifecycle.ActivationTrigger)]:
			res.Active = append(res.Active, id)
			res.Reasons[id] = ReasonActivated
		case a.Lifecycle.ActivationTrigger == "" && a.Lifecycle.TerminationTrigger == "":
			res.Inactive = append(res.Inactive, id)
			res.Reasons[id] = ReasonNoTrigger
		default:
			res.Inactive = append(res.Inactive, id)
			res.Reasons[id] = ReasonNoMatchingFact
		}
	}
	return res
}
