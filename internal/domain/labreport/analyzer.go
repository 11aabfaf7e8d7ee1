package labreport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/domain/profile"
	"github.com/nrivaa/nrivaa/internal/platform/llm"
)

const analysisSystemPrompt = `You are a health assistant inside the Nrivaa app explaining a patient's lab results.
Explain each result in plain language, point out values outside their reference range,
suggest practical lifestyle steps, and say which results are worth raising with a doctor.
Do not diagnose and do not prescribe medicines. Keep the answer under 300 words.`

// Analysis is the outcome of analysing one report.
type Analysis struct {
	Text     string
	Source   Source
	Findings []Finding
}

// Analyzer asks the model for an explanation and falls back to the rule
// table when the model is disabled or fails.
type Analyzer struct {
	model  llm.Generator
	rules  *Rules
	logger zerolog.Logger
	now    func() time.Time
}

func NewAnalyzer(model llm.Generator, rules *Rules, logger zerolog.Logger) *Analyzer {
	return &Analyzer{model: model, rules: rules, logger: logger, now: time.Now}
}

func (a *Analyzer) Analyze(ctx context.Context, r *Report, patient *profile.PatientProfile) Analysis {
	findings := a.rules.ClassifyAll(r.Values)

	if a.model != nil {
		prompt := buildPrompt(r, findings, patient, a.now())
		text, err := a.model.Generate(ctx, analysisSystemPrompt, []llm.Turn{{Role: llm.RoleUser, Text: prompt}})
		if err == nil && strings.TrimSpace(text) != "" {
			return Analysis{Text: text, Source: SourceAI, Findings: findings}
		}
		if errors.Is(err, llm.ErrDisabled) {
			a.logger.Debug().Msg("model disabled, using rules")
		} else {
			a.logger.Warn().Err(err).
				Str("report_id", r.ID.String()).
				Msg("model analysis unavailable, using rules")
		}
	}

	return Analysis{Text: Summarize(findings), Source: SourceRules, Findings: findings}
}

func buildPrompt(r *Report, findings []Finding, patient *profile.PatientProfile, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report: %s (tested %s)\n", r.Title, r.TestDate.Format("2006-01-02"))

	if patient != nil {
		fmt.Fprintf(&b, "Patient: %d years old, %s", patient.Age(now), patient.Gender)
		if len(patient.ChronicConditions) > 0 {
			fmt.Fprintf(&b, ", conditions: %s", strings.Join(patient.ChronicConditions, ", "))
		}
		if len(patient.Allergies) > 0 {
			fmt.Fprintf(&b, ", allergies: %s", strings.Join(patient.Allergies, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("Results:\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s: %s%s", f.Name, formatNumber(f.Value), unitSuffix(f.Unit))
		if rng := formatRange(f); rng != "" {
			fmt.Fprintf(&b, " (reference %s, %s)", rng, f.Flag)
		}
		b.WriteString("\n")
	}
	return b.String()
}
