package classify

// Rule is one threshold predicate in the cascade. Match reads named
// features through the lookup function; a feature the vector does not
// carry reads as 0.
type Rule struct {
	Name   string
	Match  func(get func(string) float64) bool
	Label  string
	Reason string
}

// DefaultReason is returned when no rule matches.
const DefaultReason = "All metrics within normal range"

// DefaultRules is the standard cascade for edge gateway health, evaluated
// top to bottom, first match wins. Ordering is load-bearing:
//
//  1. sensor-glitch checks (readings outside physical range) short-circuit
//     as Critical before any threshold is consulted;
//  2. critical thresholds per metric, temperature first;
//  3. warning bands per metric;
//  4. no match means Healthy.
var DefaultRules = []Rule{
	{
		Name:   "temperature_glitch",
		Match:  func(get func(string) float64) bool { t := get("temperature"); return t < -10 || t > 120 },
		Label:  LabelCritical,
		Reason: "Temperature reading outside physical range",
	},
	{
		Name:   "cpu_glitch",
		Match:  func(get func(string) float64) bool { c := get("cpuusage"); return c < 0 || c > 100 },
		Label:  LabelCritical,
		Reason: "CPU usage reading outside physical range",
	},
	{
		Name:   "high_temperature",
		Match:  func(get func(string) float64) bool { return get("temperature") > 80 },
		Label:  LabelCritical,
		Reason: "High temperature detected",
	},
	{
		Name:   "low_temperature",
		Match:  func(get func(string) float64) bool { return get("temperature") < 5 },
		Label:  LabelCritical,
		Reason: "Extremely low temperature detected",
	},
	{
		Name:   "high_memory",
		Match:  func(get func(string) float64) bool { return get("used_memory") > 1600 },
		Label:  LabelCritical,
		Reason: "High memory consumption detected",
	},
	{
		Name:   "high_storage",
		Match:  func(get func(string) float64) bool { return get("used_storage") > 3900 },
		Label:  LabelCritical,
		Reason: "High storage consumption detected",
	},
	{
		Name:   "high_cpu",
		Match:  func(get func(string) float64) bool { return get("cpuusage") > 90 },
		Label:  LabelCritical,
		Reason: "High CPU usage detected",
	},
	{
		Name:   "elevated_temperature",
		Match:  func(get func(string) float64) bool { return get("temperature") >= 65 },
		Label:  LabelWarning,
		Reason: "Elevated temperature detected",
	},
	{
		Name:   "low_temperature_warning",
		Match:  func(get func(string) float64) bool { return get("temperature") < 10 },
		Label:  LabelWarning,
		Reason: "Low temperature detected",
	},
	{
		Name:   "elevated_memory",
		Match:  func(get func(string) float64) bool { return get("used_memory") >= 1350 },
		Label:  LabelWarning,
		Reason: "Elevated memory consumption detected",
	},
	{
		Name:   "elevated_storage",
		Match:  func(get func(string) float64) bool { return get("used_storage") >= 3400 },
		Label:  LabelWarning,
		Reason: "Elevated storage consumption detected",
	},
	{
		Name:   "elevated_cpu",
		Match:  func(get func(string) float64) bool { return get("cpuusage") >= 60 },
		Label:  LabelWarning,
		Reason: "Elevated CPU usage detected",
	},
}

// RuleBased evaluates an ordered rule cascade over a named feature vector.
// Always available; needs no artifact.
type RuleBased struct {
	order []string
	rules []Rule
	index map[string]int
}

// NewRuleBased builds a cascade classifier over DefaultRules for features
// appearing in the given order.
func NewRuleBased(order []string) *RuleBased {
	return NewRuleBasedWith(order, DefaultRules)
}

// NewRuleBasedWith builds a cascade classifier with an explicit rule list.
// Rules are evaluated in slice order.
func NewRuleBasedWith(order []string, rules []Rule) *RuleBased {
	idx := make(map[string]int, len(order))
	for i, k := range order {
		idx[k] = i
	}
	return &RuleBased{order: order, rules: rules, index: idx}
}

// Classify walks the cascade and returns the first matching rule's label
// and reason. No rule accumulation: later matches are never consulted.
func (r *RuleBased) Classify(features []float64) (Result, error) {
	get := r.lookup(features)
	for _, rule := range r.rules {
		if rule.Match(get) {
			return Result{Label: rule.Label, Reason: rule.Reason}, nil
		}
	}
	return Result{Label: LabelHealthy, Reason: DefaultReason}, nil
}

// Explain returns the reason the cascade would give for this vector,
// independent of which strategy chose the label.
func (r *RuleBased) Explain(features []float64) string {
	res, _ := r.Classify(features)
	return res.Reason
}

func (r *RuleBased) lookup(features []float64) func(string) float64 {
	return func(key string) float64 {
		i, ok := r.index[key]
		if !ok || i >= len(features) {
			return 0
		}
		return features[i]
	}
}
