// Package extraction pulls symptom details out of a caller's transcript turns
// with fixed patterns. It never fails: lines that match nothing leave the
// record untouched.
package extraction

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
)

// Unit vocabularies for duration phrases. Call flows differ in which units the
// agent prompts for, so the extractor is built with one of these.
var (
	UnitsHours  = []string{"hour", "day", "week"}
	UnitsMonths = []string{"day", "week", "month"}
	UnitsAll    = []string{"hour", "day", "week", "month"}
)

// UnitsByName resolves a DURATION_UNITS value. Unknown names fall back to UnitsAll.
func UnitsByName(name string) []string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hours":
		return UnitsHours
	case "months":
		return UnitsMonths
	default:
		return UnitsAll
	}
}

var severityRE = regexp.MustCompile(`\b(\d+)\s*(?:out\s+of|/)\s*10\b`)

type locationMatcher struct {
	re    *regexp.Regexp
	label string
}

var locationMatchers = func() []locationMatcher {
	out := make([]locationMatcher, 0, len(sortedLocationPatterns))
	for _, p := range sortedLocationPatterns {
		out = append(out, locationMatcher{
			re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(p.phrase) + `(?:s|es)?\b`),
			label: p.label,
		})
	}
	return out
}()

// Option customizes an Extractor.
type Option func(*Extractor)

// WithDurationUnits restricts duration matching to the given singular units.
// Plural forms are accepted automatically.
func WithDurationUnits(units []string) Option {
	return func(e *Extractor) {
		if len(units) > 0 {
			e.units = units
		}
	}
}

// Extractor scans caller lines for severity, duration, symptoms, locations and
// medications. It holds only immutable state and is safe for concurrent use.
type Extractor struct {
	units      []string
	durationRE *regexp.Regexp
}

// New builds an Extractor. Without options every duration unit is accepted.
func New(opts ...Option) *Extractor {
	e := &Extractor{units: UnitsAll}
	for _, opt := range opts {
		opt(e)
	}
	e.durationRE = buildDurationRE(e.units)
	return e
}

func buildDurationRE(units []string) *regexp.Regexp {
	forms := make([]string, 0, len(units)*2)
	for _, u := range units {
		u = strings.ToLower(strings.TrimSpace(u))
		if u == "" {
			continue
		}
		forms = append(forms, regexp.QuoteMeta(u+"s"), regexp.QuoteMeta(u))
	}
	sort.SliceStable(forms, func(i, j int) bool { return len(forms[i]) > len(forms[j]) })
	return regexp.MustCompile(`\b(\d+)\s+(` + strings.Join(forms, "|") + `)\b`)
}

// Fill reports what a single Extract call added to the record.
type Fill struct {
	Severity    bool
	Duration    bool
	Location    bool
	Symptoms    int
	Medications int
}

// Any reports whether anything was filled.
func (f Fill) Any() bool {
	return f.Severity || f.Duration || f.Location || f.Symptoms > 0 || f.Medications > 0
}

// Extract applies every scan to each line in order. Fields that already hold a
// value are left alone, so running the mapper first gives it precedence.
func (e *Extractor) Extract(rec *consultation.Record, lines []string) Fill {
	var fill Fill
	if rec == nil {
		return fill
	}
	s := &rec.Symptoms
	for _, raw := range lines {
		line := strings.ToLower(strings.TrimSpace(raw))
		if line == "" {
			continue
		}
		if n, ok := matchSeverity(line); ok && s.SetSeverity(n) {
			fill.Severity = true
		}
		if d, ok := e.matchDuration(line); ok && s.SetDuration(d) {
			fill.Duration = true
		}
		for _, label := range matchPatterns(line, symptomPatterns) {
			if s.AddSymptom(label) {
				fill.Symptoms++
			}
		}
		if loc, ok := matchLocation(line); ok && s.SetLocation(loc) {
			fill.Location = true
		}
		for _, med := range matchPatterns(line, medicationPatterns) {
			if s.MedicationsTaken.Add(med) {
				fill.Medications++
			}
		}
	}
	return fill
}

func matchSeverity(line string) (int, bool) {
	m := severityRE.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (e *Extractor) matchDuration(line string) (string, bool) {
	m := e.durationRE.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%d %s", n, m[2]), true
}

// matchPatterns returns labels for every phrase contained in line, in table
// order, without repeats.
func matchPatterns(line string, table []pattern) []string {
	var labels []string
	for _, p := range table {
		if !strings.Contains(line, p.phrase) {
			continue
		}
		dup := false
		for _, l := range labels {
			if l == p.label {
				dup = true
				break
			}
		}
		if !dup {
			labels = append(labels, p.label)
		}
	}
	return labels
}

func matchLocation(line string) (string, bool) {
	for _, m := range locationMatchers {
		if m.re.MatchString(line) {
			return m.label, true
		}
	}
	return "", false
}
