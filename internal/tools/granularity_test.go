package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectGranularity(t *testing.T) {
	cases := map[string]string{
		"leadership":             GranularitySubject,
		"Physics":                GranularitySubject,
		"financial services":     GranularitySubject,
		"effective delegation":   GranularityTopic,
		"active listening":       GranularityTopic,
		"conflict resolution":    GranularityTopic,
		"quantum mechanics":      GranularityTopic,
		"SWOT analysis":          GranularityModule,
		"Eisenhower matrix":      GranularityModule,
		"Porter's five forces":   GranularityModule,
		"the GROW model":         GranularityModule,
		"  leadership  ":         GranularitySubject,
		"leadership development": GranularityTopic,
	}

	for input, want := range cases {
		assert.Equal(t, want, DetectGranularity(input), "input: %q", input)
	}
}

func TestDetectGranularity_SubjectOnlyWhenShort(t *testing.T) {
	// Subject words inside longer phrases are not broad requests.
	assert.Equal(t, GranularityTopic, DetectGranularity("history of the roman empire"))
}
