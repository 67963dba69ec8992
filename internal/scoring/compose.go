package scoring

// composite is the weighted static score over the pillars that have data.
type composite struct {
	availableWeight float64
	staticRisk      *float64
	staticHealth    *float64
	contributors    map[string]PillarContribution
}

// composeScore combines available pillar risks using pillar weights,
// renormalizing over only the pillars with data. The available weight doubles
// as the coverage fraction since defined pillar weights sum to 1.00.
func (p Policy) composeScore(pillarRisks map[string]*float64) composite {
	c := composite{contributors: make(map[string]PillarContribution)}

	var weighted float64
	for name, risk := range pillarRisks {
		if risk == nil {
			continue
		}
		c.availableWeight += p.PillarWeights[name]
		weighted += p.PillarWeights[name] * *risk
	}
	if c.availableWeight == 0 {
		return c
	}

	staticRisk := weighted / c.availableWeight
	staticHealth := 100 - staticRisk
	c.staticRisk = &staticRisk
	c.staticHealth = &staticHealth

	// Per-pillar contributions sum (within rounding) to staticRisk.
	for name, risk := range pillarRisks {
		if risk == nil {
			continue
		}
		def := p.Pillars[name]
		c.contributors[name] = PillarContribution{
			MetricKeys:               def.MetricKeys,
			Aggregation:              def.Aggregation,
			PillarRiskScore:          *risk,
			WeightedRiskContribution: p.PillarWeights[name] * *risk / c.availableWeight,
		}
	}

	return c
}
