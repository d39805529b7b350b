// Package redact detects and masks secrets in text before it is logged or
// let past a gate.
package redact

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// secretPattern matches high-entropy strings that may be secrets.
var secretPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a string to be
// considered a secret. Typical API keys and tokens sit well above 5.0.
const entropyThreshold = 4.5

// Placeholder replaces every detected secret.
const Placeholder = "REDACTED"

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

func getDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		gitleaksDetector = d
	})
	return gitleaksDetector
}

// Finding is a known-format secret located by the gitleaks rule set.
type Finding struct {
	// RuleID names the matching gitleaks rule, e.g. "github-pat".
	RuleID string
	// Description is the rule's human-readable summary.
	Description string
	// Line is the line the secret starts on, as reported by gitleaks.
	Line int
	// Secret is the matched value. Never log it.
	Secret string
}

// Findings reports every known-format secret in s. Entropy alone never
// produces a finding here; use String to mask those too.
func Findings(s string) []Finding {
	d := getDetector()
	if d == nil {
		return nil
	}

	var out []Finding
	for _, f := range d.DetectString(s) {
		if f.Secret == "" {
			continue
		}
		out = append(out, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
			Secret:      f.Secret,
		})
	}
	return out
}

// RuleIDs returns the distinct rule ids of findings in first-seen order.
func RuleIDs(findings []Finding) []string {
	seen := make(map[string]bool, len(findings))
	var ids []string
	for _, f := range findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	return ids
}

// region represents a byte range to redact.
type region struct{ start, end int }

// String replaces secrets in s with Placeholder using layered detection:
// high-entropy alphanumeric runs and the gitleaks pattern rules. A string
// is redacted if either method flags it.
func String(s string) string {
	var regions []region

	for _, loc := range secretPattern.FindAllStringIndex(s, -1) {
		if shannonEntropy(s[loc[0]:loc[1]]) > entropyThreshold {
			regions = append(regions, region{loc[0], loc[1]})
		}
	}

	for _, f := range Findings(s) {
		searchFrom := 0
		for {
			idx := strings.Index(s[searchFrom:], f.Secret)
			if idx < 0 {
				break
			}
			absIdx := searchFrom + idx
			regions = append(regions, region{absIdx, absIdx + len(f.Secret)})
			searchFrom = absIdx + len(f.Secret)
		}
	}

	if len(regions) == 0 {
		return s
	}

	// Merge overlapping regions and build result.
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].start < regions[j].start
	})
	merged := []region{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
		} else {
			merged = append(merged, r)
		}
	}

	var b strings.Builder
	prev := 0
	for _, r := range merged {
		b.WriteString(s[prev:r.start])
		b.WriteString(Placeholder)
		prev = r.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

// Preview returns at most n bytes of s with secrets masked. Redaction runs
// before truncation so a secret straddling the cut is still caught.
func Preview(s string, n int) string {
	r := String(s)
	if len(r) <= n {
		return r
	}
	return r[:n]
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := range len(s) {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
