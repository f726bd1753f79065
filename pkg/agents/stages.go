package agents

// All returns the five stages in pipeline order.
func All() []Stage {
	return []Stage{
		Classification{},
		Analysis{},
		ValueImpact{},
		ActionPlan{},
		Prioritization{},
	}
}
