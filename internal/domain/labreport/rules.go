package labreport

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

type testRule struct {
	Names   []string `yaml:"names"`
	Unit    string   `yaml:"unit"`
	RefLow  *float64 `yaml:"ref_low"`
	RefHigh *float64 `yaml:"ref_high"`
	Low     string   `yaml:"low"`
	High    string   `yaml:"high"`
}

type ruleFile struct {
	Default struct {
		Low     string `yaml:"low"`
		High    string `yaml:"high"`
		Unknown string `yaml:"unknown"`
	} `yaml:"default"`
	Tests []testRule `yaml:"tests"`
}

// Rules classifies lab values against reference ranges and maps the result
// to canned advice by test name.
type Rules struct {
	file   ruleFile
	byName map[string]*testRule
}

func ParseRules(data []byte) (*Rules, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing lab rules: %w", err)
	}
	r := &Rules{file: f, byName: make(map[string]*testRule)}
	for i := range f.Tests {
		t := &r.file.Tests[i]
		if len(t.Names) == 0 {
			return nil, fmt.Errorf("lab rule %d has no names", i)
		}
		for _, n := range t.Names {
			key := normalizeName(n)
			if _, dup := r.byName[key]; dup {
				return nil, fmt.Errorf("lab rule name %q defined twice", n)
			}
			r.byName[key] = t
		}
	}
	return r, nil
}

// DefaultRules returns the rule table compiled into the binary.
func DefaultRules() *Rules {
	r, err := ParseRules(defaultRules)
	if err != nil {
		panic(err)
	}
	return r
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Classify flags v against its own range, falling back to the rule's range.
func (r *Rules) Classify(v Value) Finding {
	f := Finding{Name: v.Name, Value: v.Value, Unit: v.Unit, RefLow: v.RefLow, RefHigh: v.RefHigh}
	rule := r.byName[normalizeName(v.Name)]
	if f.RefLow == nil && f.RefHigh == nil && rule != nil {
		f.RefLow, f.RefHigh = rule.RefLow, rule.RefHigh
		if f.Unit == "" {
			f.Unit = rule.Unit
		}
	}

	switch {
	case f.RefLow == nil && f.RefHigh == nil:
		f.Flag = FlagUnknown
		f.Advice = r.file.Default.Unknown
	case f.RefLow != nil && v.Value < *f.RefLow:
		f.Flag = FlagLow
		f.Advice = r.file.Default.Low
		if rule != nil && rule.Low != "" {
			f.Advice = rule.Low
		}
	case f.RefHigh != nil && v.Value > *f.RefHigh:
		f.Flag = FlagHigh
		f.Advice = r.file.Default.High
		if rule != nil && rule.High != "" {
			f.Advice = rule.High
		}
	default:
		f.Flag = FlagNormal
	}
	return f
}

func (r *Rules) ClassifyAll(values []Value) []Finding {
	findings := make([]Finding, 0, len(values))
	for _, v := range values {
		findings = append(findings, r.Classify(v))
	}
	return findings
}

const disclaimer = "This summary is based on reference ranges only and is not a diagnosis. Please review your results with your doctor."

// Summarize renders findings as the plain text analysis stored on a report.
func Summarize(findings []Finding) string {
	var b strings.Builder
	abnormal := 0
	for _, f := range findings {
		if f.Flag == FlagLow || f.Flag == FlagHigh {
			abnormal++
		}
	}
	switch known := countKnown(findings); {
	case len(findings) == 0:
		b.WriteString("The report has no results to compare.\n")
	case known == 0:
		b.WriteString("None of the results could be compared with a reference range.\n")
	case abnormal == 0:
		fmt.Fprintf(&b, "All %d results with a reference range are within it.\n", known)
	default:
		fmt.Fprintf(&b, "%d of %d results are outside their reference ranges.\n", abnormal, len(findings))
	}
	for _, f := range findings {
		if f.Flag == FlagNormal {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s%s", f.Name, formatNumber(f.Value), unitSuffix(f.Unit))
		if f.Flag != FlagUnknown {
			fmt.Fprintf(&b, " is %s", f.Flag)
		}
		if rng := formatRange(f); rng != "" {
			fmt.Fprintf(&b, " (reference %s)", rng)
		}
		b.WriteString(".")
		if f.Advice != "" {
			b.WriteString(" " + f.Advice)
		}
	}
	b.WriteString("\n\n" + disclaimer)
	return b.String()
}

func countKnown(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.Flag != FlagUnknown {
			n++
		}
	}
	return n
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}

func formatRange(f Finding) string {
	switch {
	case f.RefLow != nil && f.RefHigh != nil:
		return formatNumber(*f.RefLow) + "-" + formatNumber(*f.RefHigh)
	case f.RefLow != nil:
		return "above " + formatNumber(*f.RefLow)
	case f.RefHigh != nil:
		return "below " + formatNumber(*f.RefHigh)
	default:
		return ""
	}
}
