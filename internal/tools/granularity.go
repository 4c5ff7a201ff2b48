package tools

import (
	"regexp"
	"strings"
)

// Granularity levels for a learning request.
const (
	GranularitySubject = "subject"
	GranularityTopic   = "topic"
	GranularityModule  = "module"
)

var subjectPatterns = []*regexp.Regexp{
	// Business domains
	regexp.MustCompile(`^(leadership|management|communication|finance|marketing|sales|hr|operations|strategy|innovation|entrepreneurship|accounting|economics|negotiation|productivity|teamwork)$`),
	// Professional skill groups
	regexp.MustCompile(`^(soft skills|hard skills|technical skills|interpersonal skills|analytical skills)$`),
	// Industries/fields
	regexp.MustCompile(`^(financial services|healthcare|technology|education|retail|manufacturing|consulting)$`),
	// Academic domains
	regexp.MustCompile(`^(mathematics|science|history|literature|philosophy|psychology|sociology|biology|chemistry|physics)$`),
}

var modulePatterns = []*regexp.Regexp{
	// Framework/method keywords
	regexp.MustCompile(`(framework|model|method|technique|tool|principle|rule|law|theory|formula|matrix|system|approach)`),
	// Named concepts and frameworks
	regexp.MustCompile(`(smart|swot|pestle|porter|maslow|herzberg|mcgregor|drucker|covey|goleman|kotter|lewin|tuckman|belbin|johari|eisenhower|pareto|5 whys|raci|kanban|scrum|agile)`),
}

// DetectGranularity classifies a learning request as a broad subject, a
// focused topic, or a specific module. Topic is the default when neither
// subject nor module indicators fire.
func DetectGranularity(input string) string {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	wordCount := len(strings.Fields(trimmed))

	if wordCount <= 2 {
		for _, p := range subjectPatterns {
			if p.MatchString(trimmed) {
				return GranularitySubject
			}
		}
	}

	for _, p := range modulePatterns {
		if p.MatchString(trimmed) {
			return GranularityModule
		}
	}

	return GranularityTopic
}
