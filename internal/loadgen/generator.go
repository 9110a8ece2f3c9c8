package loadgen

import (
	"math"
	"math/rand/v2"
)

// Vital distributions of the synthetic training population.
const (
	ageMin, ageMax   = 18, 89
	hrMean, hrSD     = 85.0, 25.0
	hrMin, hrMax     = 40.0, 180.0
	sbpBase, sbpAge  = 130.0, 0.3
	sbpSD            = 25.0
	sbpMin, sbpMax   = 70.0, 220.0
	dbpBase, dbpAge  = 80.0, 0.2
	dbpSD            = 15.0
	dbpMin, dbpMax   = 40.0, 130.0
	tempMean, tempSD = 37.2, 0.8
	tempMin, tempMax = 34.0, 41.0
)

var symptomTexts = []string{
	"mild headache since this morning, no other complaints",
	"runny nose and sore throat for two days",
	"sprained ankle while jogging, able to walk",
	"persistent cough with low grade fever for a week",
	"abdominal pain in the lower right side, nausea",
	"shortness of breath when climbing stairs, swollen ankles",
	"sudden severe chest pain radiating to the left arm, sweating",
	"slurred speech and weakness on one side of the face",
	"high fever, stiff neck and confusion",
	"fainted at home, palpitations and dizziness",
}

// Generator produces synthetic cases. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns the next case.
func (g *Generator) Next() Case {
	age := float64(ageMin + g.rng.IntN(ageMax-ageMin+1))
	sex := 0.0
	if g.rng.Float64() < 0.5 {
		sex = 1
	}
	return Case{
		Symptoms:    symptomTexts[g.rng.IntN(len(symptomTexts))],
		Age:         age,
		Sex:         sex,
		HeartRate:   g.normal(hrMean, hrSD, hrMin, hrMax),
		SystolicBP:  g.normal(sbpBase+sbpAge*age, sbpSD, sbpMin, sbpMax),
		DiastolicBP: g.normal(dbpBase+dbpAge*age, dbpSD, dbpMin, dbpMax),
		Temperature: g.normal(tempMean, tempSD, tempMin, tempMax),
	}
}

// Generate returns n cases.
func (g *Generator) Generate(n int) []Case {
	cases := make([]Case, n)
	for i := range cases {
		cases[i] = g.Next()
	}
	return cases
}

func (g *Generator) normal(mean, sd, lo, hi float64) float64 {
	v := mean + sd*g.rng.NormFloat64()
	return math.Round(math.Min(math.Max(v, lo), hi)*10) / 10
}
