package llm

import (
	"fmt"
	"strings"

	"github.com/okian/triage/internal/domain/model"
)

const narrativeSystemPrompt = `You are a medical explainability assistant.

Explain ONLY the highest predicted severity category.
Use simple, clinically sound reasoning.
Base the explanation strictly on:
- patient symptoms
- the text severity label
- the vitals score
- the feature contributions

Do NOT invent new data.
Keep the explanation under 120 words.
Return ONLY the plain text explanation.`

const routingSystemPrompt = `You are a medical triage router.

Based on the patient's condition,
choose EXACTLY ONE department from this list:

%s

Return ONLY the department name.
Do NOT explain.
Do NOT add extra text.`

// Sampling settings per call.
const (
	narrativeTemperature = 0.3
	narrativeMaxTokens   = 400
	routingTemperature   = 0
	routingMaxTokens     = 32
)

func narrativePrompt(nc model.NarrativeContext) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient Text:\n%s\n\n", nc.Text)
	fmt.Fprintf(&b, "Highest Text Severity Label:\n%s\n\n", nc.Label)
	fmt.Fprintf(&b, "Text Severity Score:\n%.4f\n\n", nc.TextScore)
	fmt.Fprintf(&b, "Vitals Score:\n%.4f\n\n", nc.VitalsScore)
	b.WriteString("Feature Contributions:\n")
	for _, f := range nc.Contributions {
		fmt.Fprintf(&b, "- %s (value %g): %+.4f\n", f.Name, f.Value, f.Contribution)
	}
	fmt.Fprintf(&b, "\nFinal Combined Risk Score:\n%d\n", nc.RiskPercent)
	return Prompt{
		System:      narrativeSystemPrompt,
		User:        b.String(),
		Temperature: narrativeTemperature,
		MaxTokens:   narrativeMaxTokens,
	}
}

func routingPrompt(rc model.RoutingContext, allowed []string) Prompt {
	user := fmt.Sprintf("Patient Text:\n%s\n\nHighest Text Severity Label:\n%s\n\nFinal Risk Score:\n%d\n",
		rc.Text, rc.Label, rc.RiskPercent)
	return Prompt{
		System:      fmt.Sprintf(routingSystemPrompt, strings.Join(allowed, "\n")),
		User:        user,
		Temperature: routingTemperature,
		MaxTokens:   routingMaxTokens,
	}
}
