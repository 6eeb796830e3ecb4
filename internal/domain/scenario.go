package domain

// Scenario biases query phrasing and narrative tone. It never changes orchestration.
type Scenario string

const (
	ScenarioCheapest Scenario = "cheapest"
	ScenarioFastest  Scenario = "fastest"
	ScenarioBalanced Scenario = "balanced"
	ScenarioLuxury   Scenario = "luxury"
)

// DefaultScenario is used when a request carries no scenario tag.
const DefaultScenario = ScenarioBalanced

var scenarioModifiers = map[Scenario]string{
	ScenarioCheapest: "budget affordable cheap low-cost DIY",
	ScenarioFastest:  "expedited fast-track premium processing quick",
	ScenarioBalanced: "reasonable practical moderate standard",
	ScenarioLuxury:   "premium luxury high-end exclusive concierge",
}

var scenarioLabels = map[Scenario]string{
	ScenarioCheapest: "The Frugal Mover",
	ScenarioBalanced: "The Balanced Mover",
	ScenarioFastest:  "The Fast-Track Mover",
	ScenarioLuxury:   "The Premier Mover",
}

var scenarioGuidance = map[Scenario]string{
	ScenarioCheapest: "Prioritize minimizing cost. Prefer DIY options, budget flights, shared or modest housing, and longer timelines if it saves money.",
	ScenarioBalanced: "Balance cost, time, and convenience. Choose realistic, middle-of-the-road options likely for most movers.",
	ScenarioFastest:  "Prioritize speed. Use approaches that reduce waiting time even at higher cost; consider premium processing, temporary housing to accelerate arrival, etc.",
	ScenarioLuxury:   "Prioritize convenience and service quality. Assume use of relocation agents, premium services, and higher budgets to reduce stress and delays.",
}

// Modifier returns the query-biasing phrase for the scenario. Unknown scenarios get the balanced phrase.
func (s Scenario) Modifier() string {
	if m, ok := scenarioModifiers[s]; ok {
		return m
	}
	return scenarioModifiers[DefaultScenario]
}

// Label returns the persona name used in narratives.
func (s Scenario) Label() string {
	if l, ok := scenarioLabels[s]; ok {
		return l
	}
	return scenarioLabels[DefaultScenario]
}

// Guidance returns the planning bias for narrative generation.
func (s Scenario) Guidance() string {
	if g, ok := scenarioGuidance[s]; ok {
		return g
	}
	return scenarioGuidance[DefaultScenario]
}

func (s Scenario) IsValid() bool {
	_, ok := scenarioModifiers[s]
	return ok
}

// ParseScenario accepts an empty string as DefaultScenario.
func ParseScenario(raw string) (Scenario, error) {
	if raw == "" {
		return DefaultScenario, nil
	}
	s := Scenario(raw)
	if !s.IsValid() {
		return "", NewDomainErrorWithCause(ErrCodeValidation, "invalid scenario: "+raw, ErrInvalidScenario)
	}
	return s, nil
}
