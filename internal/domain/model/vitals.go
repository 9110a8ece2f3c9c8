// Package model contains domain models passed between layers.
package model

// Canonical vitals feature names. The order matches the regressor's input
// tensor and the attribution engine's feature ordering.
const (
	FeatureAge         = "Age"
	FeatureSex         = "Sex"
	FeatureHeartRate   = "Heart_Rate"
	FeatureSystolicBP  = "Systolic_BP"
	FeatureDiastolicBP = "Diastolic_BP"
	FeatureTemperature = "Temperature"
)

// FeatureNames lists the vitals features in canonical order.
var FeatureNames = []string{ //nolint:gochecknoglobals // fixed feature schema
	FeatureAge,
	FeatureSex,
	FeatureHeartRate,
	FeatureSystolicBP,
	FeatureDiastolicBP,
	FeatureTemperature,
}

// VitalsRecord is the fixed six-field numeric input to the vitals regressor.
type VitalsRecord struct {
	Age         float64 `json:"age"`          // years
	Sex         float64 `json:"sex"`          // binary indicator
	HeartRate   float64 `json:"heart_rate"`   // bpm
	SystolicBP  float64 `json:"systolic_bp"`  // mmHg
	DiastolicBP float64 `json:"diastolic_bp"` // mmHg
	Temperature float64 `json:"temperature"`  // °C
}

// Vector returns the record values in canonical feature order.
func (v VitalsRecord) Vector() []float64 {
	return []float64{v.Age, v.Sex, v.HeartRate, v.SystolicBP, v.DiastolicBP, v.Temperature}
}

// Values returns the record as a feature name to value mapping.
func (v VitalsRecord) Values() map[string]float64 {
	vec := v.Vector()
	out := make(map[string]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		out[name] = vec[i]
	}
	return out
}

// VitalsFromVector builds a record from values in canonical order.
// It returns false when the vector length does not match the schema.
func VitalsFromVector(vec []float64) (VitalsRecord, bool) {
	if len(vec) != len(FeatureNames) {
		return VitalsRecord{}, false
	}
	return VitalsRecord{
		Age:         vec[0],
		Sex:         vec[1],
		HeartRate:   vec[2],
		SystolicBP:  vec[3],
		DiastolicBP: vec[4],
		Temperature: vec[5],
	}, true
}
