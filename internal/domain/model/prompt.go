package model

// NarrativeContext is what the narrative generator sees for one assessment.
type NarrativeContext struct {
	Text          string
	Label         Severity
	TextScore     float64
	VitalsScore   float64
	Contributions []Feature // waterfall presentation order
	RiskPercent   int
}

// RoutingContext is what the department router sees for one assessment.
type RoutingContext struct {
	Text        string
	Label       Severity
	RiskPercent int
}
