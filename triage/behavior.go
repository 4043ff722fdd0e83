// Package triage implements the offense triage pipeline: behavior analysis,
// reputation enrichment, similar-case retrieval, the decision engine, and
// incident report assembly.
package triage

import (
	"fmt"
	"sort"
	"strings"

	"nuvex/core"
)

// Traffic pattern labels produced by Summarize.
const (
	PatternSingleRemoteToManyLocal = "single-remote-to-many-local"
	PatternManyRemoteToSingleLocal = "many-remote-to-single-local"
	PatternGeneralTraffic          = "general-traffic"
)

// Behavior descriptions paired with the patterns above.
const (
	BehaviorRemoteScanner  = "remote scanner or probing"
	BehaviorTargetedAttack = "targeted attack or flooding"
	BehaviorMixedTraffic   = "mixed or normal pattern"
)

// fanOutThreshold is the distinct-indicator count beyond which traffic is
// considered one-to-many or many-to-one.
const fanOutThreshold = 5

// BehaviorSummary is the deterministic first-pass characterization of an
// offense. No external calls are involved; the same offense always produces
// a byte-identical summary.
type BehaviorSummary struct {
	Pattern  string
	Behavior string
	LogTypes []string
	Summary  string
}

// Summarize derives the traffic pattern, behavior label, log-type set, and a
// templated summary sentence from raw offense fields. Rules apply in
// priority order; the first match wins.
func Summarize(o *core.Offense) BehaviorSummary {
	srcCount := distinctCount(o.SourceIPs)
	dstCount := distinctCount(o.DestinationIPs)

	var pattern, behavior string
	switch {
	case srcCount == 1 && dstCount > fanOutThreshold:
		pattern = PatternSingleRemoteToManyLocal
		behavior = BehaviorRemoteScanner
	case dstCount == 1 && srcCount > fanOutThreshold:
		pattern = PatternManyRemoteToSingleLocal
		behavior = BehaviorTargetedAttack
	default:
		pattern = PatternGeneralTraffic
		behavior = BehaviorMixedTraffic
	}

	logTypes := collectLogTypes(o.SampledEvents())

	rendered := "none"
	if len(logTypes) > 0 {
		rendered = strings.Join(logTypes, ", ")
	}
	summary := fmt.Sprintf("Observed %s behavior with %d events. Source indicators: %d, destination indicators: %d. Log types observed: %s.",
		behavior, o.EventCount, srcCount, dstCount, rendered)

	return BehaviorSummary{
		Pattern:  pattern,
		Behavior: behavior,
		LogTypes: logTypes,
		Summary:  summary,
	}
}

// collectLogTypes returns the sorted, deduplicated event categories. Events
// without a category count as "unknown". Sorting keeps the summary sentence
// reproducible.
func collectLogTypes(events []core.Event) []string {
	if len(events) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		cat := e.Category
		if cat == "" {
			cat = "unknown"
		}
		seen[cat] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

func distinctCount(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
