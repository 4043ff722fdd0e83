package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicatorsOrder(t *testing.T) {
	o := &Offense{
		SourceIPs:      []string{"203.0.113.5", "203.0.113.6"},
		DestinationIPs: []string{"10.0.0.1"},
	}
	assert.Equal(t, []string{"203.0.113.5", "203.0.113.6", "10.0.0.1"}, o.Indicators())
}

func TestIndicatorsEmpty(t *testing.T) {
	assert.Empty(t, (&Offense{}).Indicators())
}

func TestSampledEventsBound(t *testing.T) {
	events := make([]Event, MaxSampledEvents+3)
	o := &Offense{Events: events}
	assert.Len(t, o.SampledEvents(), MaxSampledEvents)

	o = &Offense{Events: events[:2]}
	assert.Len(t, o.SampledEvents(), 2)
}

func TestSimilarCaseHasTag(t *testing.T) {
	c := &SimilarCase{Tags: []string{"Data Exfiltration", "Insider Threat"}}
	assert.True(t, c.HasTag("Data Exfiltration"))
	assert.False(t, c.HasTag("Phishing"))
	assert.False(t, c.HasTag("data exfiltration"), "tag matching is case sensitive")
}

func TestOffenseJSONRoundTrip(t *testing.T) {
	payload := `{
		"offense_id": "off-1",
		"description": "Port scan",
		"source_ips": ["203.0.113.5"],
		"destination_ips": ["10.0.0.1"],
		"log_sources": ["Firewall-01"],
		"event_count": 12,
		"magnitude": 6.5,
		"username": "svc-backup",
		"events": [{"event_name": "syn probe", "category": "Firewall"}]
	}`

	var o Offense
	require.NoError(t, json.Unmarshal([]byte(payload), &o))
	assert.Equal(t, "off-1", o.ID)
	assert.Equal(t, 6.5, o.Magnitude)
	require.Len(t, o.Events, 1)
	assert.Equal(t, "syn probe", o.Events[0].Name)
	assert.Equal(t, "Firewall", o.Events[0].Category)
}
