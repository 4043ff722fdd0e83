package triage

import (
	"sort"
	"strings"

	"nuvex/core"
)

// EventSelector picks the representative sample event shown in an incident
// report, or nil when the offense carries no events. Selection is pluggable
// so new offense types can be wired in without touching the assembler.
type EventSelector func(o *core.Offense) *core.Event

// defaultOffenseKeywords maps an offense-type keyword (matched against the
// description) to payload keywords that mark an event as representative.
var defaultOffenseKeywords = map[string][]string{
	"exfiltration": {"transfer", "upload", "outbound", "ftp", "dns"},
	"scan":         {"scan", "probe", "syn", "connect"},
	"brute":        {"failed", "login", "auth", "password"},
	"malware":      {"malware", "trojan", "payload", "dropper"},
	"phishing":     {"phish", "credential", "link", "attachment"},
}

// DefaultEventSelector matches offense-type keywords against sampled event
// payloads and falls back to the first event when nothing matches.
var DefaultEventSelector = KeywordEventSelector(defaultOffenseKeywords)

// KeywordEventSelector builds a selector over an offense-type keyword table.
// Type keys are evaluated in sorted order so selection is deterministic.
func KeywordEventSelector(keywordsByType map[string][]string) EventSelector {
	types := make([]string, 0, len(keywordsByType))
	for t := range keywordsByType {
		types = append(types, t)
	}
	sort.Strings(types)

	return func(o *core.Offense) *core.Event {
		events := o.SampledEvents()
		if len(events) == 0 {
			return nil
		}

		desc := strings.ToLower(o.Description)
		for _, typ := range types {
			if !strings.Contains(desc, typ) {
				continue
			}
			for i := range events {
				payload := strings.ToLower(events[i].Payload)
				for _, kw := range keywordsByType[typ] {
					if strings.Contains(payload, kw) {
						return &events[i]
					}
				}
			}
		}
		return &events[0]
	}
}
