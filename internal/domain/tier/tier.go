// Package tier fuses the four gate scores into a discrete trust tier.
//
// Tier determination is a pure function of the gate scores over a data-driven
// table of threshold rules, evaluated top-down. Swapping the table (e.g. for a
// launch phase that grants every passing submission the same nominal tier)
// never touches the scoring pipeline.
package tier

import (
	"github.com/youthperformance/xlens/internal/domain/model"
)

// Tier is the discrete trust level assigned after gate fusion.
type Tier string

const (
	Rejected Tier = "rejected"
	Measured Tier = "measured"
	Bronze   Tier = "bronze"
	Silver   Tier = "silver"
	Gold     Tier = "gold"
)

// rank orders tiers for AtLeast comparisons.
var rank = map[Tier]int{
	Rejected: 0,
	Measured: 1,
	Bronze:   2,
	Silver:   3,
	Gold:     4,
}

// AtLeast reports whether t meets or exceeds min.
func (t Tier) AtLeast(min Tier) bool {
	return rank[t] >= rank[min]
}

// Valid reports whether s names a known tier.
func Valid(s string) bool {
	_, ok := rank[Tier(s)]
	return ok
}

// Rule is one row of the fusion table: the tier granted when every threshold
// is met. RequireCrypto rules are unreachable without a valid signature, so a
// crypto failure is a hard disqualifier for those tiers.
type Rule struct {
	Tier           Tier
	MinAttestation float64
	RequireCrypto  bool
	MinLiveness    float64
	MinPhysics     float64
}

func (r Rule) matches(g model.GateScores) bool {
	if r.RequireCrypto && !g.CryptoValid {
		return false
	}
	return g.Attestation >= r.MinAttestation &&
		g.Liveness >= r.MinLiveness &&
		g.Physics >= r.MinPhysics
}

// Policy is an ordered rule table plus the tier granted when no rule matches.
type Policy struct {
	Phase    string
	Rules    []Rule
	Fallback Tier
}

// Evaluate walks the table top-down and returns the first matching tier.
func (p Policy) Evaluate(g model.GateScores) Tier {
	for _, r := range p.Rules {
		if r.matches(g) {
			return r.Tier
		}
	}
	return p.Fallback
}

// Launch is the calibration-phase policy: every passing submission lands on
// Measured while full gate data is still recorded for later recalibration.
func Launch() Policy {
	return Policy{
		Phase:    "launch",
		Rules:    nil,
		Fallback: Measured,
	}
}

// Enforced is the steady-state policy with progressively looser thresholds
// below gold.
func Enforced() Policy {
	return Policy{
		Phase: "enforced",
		Rules: []Rule{
			{Tier: Gold, MinAttestation: 0.9, RequireCrypto: true, MinLiveness: 0.95, MinPhysics: 0.9},
			{Tier: Silver, MinAttestation: 0.7, RequireCrypto: true, MinLiveness: 0.8, MinPhysics: 0.8},
			{Tier: Bronze, MinAttestation: 0.5, RequireCrypto: true, MinLiveness: 0.6, MinPhysics: 0.7},
		},
		Fallback: Measured,
	}
}

// ForPhase selects a policy by name, defaulting to Launch.
func ForPhase(phase string) Policy {
	if phase == "enforced" {
		return Enforced()
	}
	return Launch()
}

// Per-gate pass thresholds used for certificate "gates passed" reporting.
const (
	passAttestation = 0.5
	passLiveness    = 0.6
	passPhysics     = 0.7
)

// GatesPassed lists which gates individually cleared their pass threshold,
// in stable order.
func GatesPassed(g model.GateScores) []string {
	var passed []string
	if g.Attestation >= passAttestation {
		passed = append(passed, "attestation")
	}
	if g.CryptoValid {
		passed = append(passed, "crypto")
	}
	if g.Liveness >= passLiveness {
		passed = append(passed, "liveness")
	}
	if g.Physics >= passPhysics {
		passed = append(passed, "physics")
	}
	return passed
}
