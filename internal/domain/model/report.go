package model

// FusedScore is the weighted combination of the text and vitals scores.
type FusedScore struct {
	FinalScore  float64 `json:"final_score"`
	RiskPercent int     `json:"risk_percent"`
}

// Feature is one row of the attribution table shown next to the waterfall.
type Feature struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// WaterfallStep is one bar of the waterfall decomposition.
type WaterfallStep struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Shap is the serialized waterfall section of a report.
type Shap struct {
	BaseValue  float64         `json:"base_value"`
	Prediction float64         `json:"prediction"`
	Features   []Feature       `json:"features"`
	Steps      []WaterfallStep `json:"steps"`
}

// RiskReport is the terminal output of one assessment.
type RiskReport struct {
	RiskScore             int    `json:"risk_score"`
	Shap                  Shap   `json:"shap"`
	Explainability        string `json:"explainability"`
	RecommendedDepartment string `json:"recommended_department"`

	// Not part of the wire shape.
	AssessmentID string  `json:"-"`
	IntegrityOK  bool    `json:"-"`
	Residual     float64 `json:"-"`
}
