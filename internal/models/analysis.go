// Package models defines profile analysis structures for PersonaPipe runs.
package models

// UserIdentity holds the synthesized identity of the fictitious user.
type UserIdentity struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Gender     string `json:"gender"`
}

// UserCharacteristics describes inferred behavioral traits.
type UserCharacteristics struct {
	Lifestyle             string `json:"lifestyle"`
	CommunicationPatterns string `json:"communication_patterns,omitempty"`
	TechnologyUsage       string `json:"technology_usage,omitempty"`
	SocialConnections     string `json:"social_connections,omitempty"`
	ProfessionalContext   string `json:"professional_context,omitempty"`
}

// EventAnalysis categorizes the supplied life events.
type EventAnalysis struct {
	EventTypes         []string `json:"event_types"`
	RecurringPatterns  []string `json:"recurring_patterns,omitempty"`
	SeasonalActivities []string `json:"seasonal_activities,omitempty"`
	SocialImplications []string `json:"social_implications,omitempty"`
}

// DataRelationships captures cross-app coherence hints for generators.
type DataRelationships struct {
	CrossAppConnections string `json:"cross_app_connections,omitempty"`
	EventTriggers       string `json:"event_triggers,omitempty"`
	TimelineCoherence   string `json:"timeline_coherence,omitempty"`
}

// AnalysisRecord is the structured inference produced once per run from the
// profile and events, consumed read-only by all generators and the reflector.
type AnalysisRecord struct {
	UserIdentity        UserIdentity        `json:"user_identity"`
	UserCharacteristics UserCharacteristics `json:"user_characteristics"`
	EventAnalysis       EventAnalysis       `json:"event_analysis"`
	AppUsagePatterns    map[string]string   `json:"app_usage_patterns,omitempty"`
	DataRelationships   DataRelationships   `json:"data_relationships"`
}

// FallbackAnalysis returns the fixed minimal analysis used when the model
// response cannot be parsed. Analysis failure is never fatal to a run.
func FallbackAnalysis() AnalysisRecord {
	return AnalysisRecord{
		UserIdentity: UserIdentity{
			FirstName: "Alex",
			LastName:  "Smith",
			Gender:    "non-binary",
		},
		UserCharacteristics: UserCharacteristics{
			Lifestyle: "moderate technology user",
		},
		EventAnalysis: EventAnalysis{
			EventTypes: []string{"personal", "work"},
		},
		DataRelationships: DataRelationships{
			CrossAppConnections: "basic connections",
		},
	}
}
