// Package memctx turns retrieved memory records into the XML context
// blocks embedded in extraction prompts. Both providers are pure: the
// same records and fetch timestamp always serialize to the same bytes.
package memctx

import (
	"encoding/json"
	"strings"
	"time"
)

// BuiltContext is the output of a context provider.
type BuiltContext struct {
	// Context is the serialized XML document.
	Context string `json:"context"`

	// Metadata is free-form provider metadata. Empty for the providers
	// in this package.
	Metadata map[string]any `json:"metadata"`

	SourceID string `json:"source_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// Association is a location, object, or subject linked to an activity.
type Association struct {
	Name  string         `json:"name"`
	Type  string         `json:"type,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// String renders the association in its prompt form:
// "name | type: X | extra: {json}". Absent parts are omitted.
func (a Association) String() string {
	var b strings.Builder
	b.WriteString(a.Name)
	if a.Type != "" {
		b.WriteString(" | type: ")
		b.WriteString(a.Type)
	}
	if len(a.Extra) > 0 {
		if extra, err := json.Marshal(a.Extra); err == nil {
			b.WriteString(" | extra: ")
			b.Write(extra)
		}
	}
	return b.String()
}

// ActivityRecord is one retrieved activity memory.
type ActivityRecord struct {
	ID         string     `json:"id"`
	Similarity *float64   `json:"similarity,omitempty"`
	Type       string     `json:"activity_type,omitempty"`
	Status     string     `json:"status,omitempty"`
	Timezone   string     `json:"timezone,omitempty"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`

	Narrative string `json:"narrative,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Feedback  string `json:"feedback,omitempty"`

	AssociatedLocations []Association `json:"associated_locations,omitempty"`
	AssociatedObjects   []Association `json:"associated_objects,omitempty"`
	AssociatedSubjects  []Association `json:"associated_subjects,omitempty"`

	// Location is the legacy single-location field kept for records
	// written before associations became lists. It is folded into
	// AssociatedLocations during serialization when the list is empty.
	Location *Association `json:"location,omitempty"`

	Tags []string `json:"tags,omitempty"`
}

// locations returns the associated locations with the legacy single
// location normalized into a one-element list.
func (r ActivityRecord) locations() []Association {
	if len(r.AssociatedLocations) == 0 && r.Location != nil {
		return []Association{*r.Location}
	}
	return r.AssociatedLocations
}

// ContextRecord is one retrieved situational-context memory.
type ContextRecord struct {
	ID            string   `json:"id"`
	Similarity    *float64 `json:"similarity,omitempty"`
	Type          string   `json:"type,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	CurrentStatus string   `json:"current_status,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// ExperienceRecord is one retrieved experience memory.
type ExperienceRecord struct {
	ID              string   `json:"id"`
	Similarity      *float64 `json:"similarity,omitempty"`
	Type            string   `json:"type,omitempty"`
	Situation       string   `json:"situation"`
	KeyLearning     string   `json:"key_learning"`
	Action          string   `json:"action,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty"`
	PossibleOutcome string   `json:"possible_outcome,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// PreferenceRecord is one retrieved preference memory.
type PreferenceRecord struct {
	ID                   string   `json:"id"`
	Similarity           *float64 `json:"similarity,omitempty"`
	Type                 string   `json:"type,omitempty"`
	ConclusionDirectives string   `json:"conclusion_directives"`
	Suggestions          string   `json:"suggestions,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
}

// IdentityRecord is one retrieved identity memory about a person.
type IdentityRecord struct {
	ID           string         `json:"id"`
	UserMemoryID string         `json:"user_memory_id,omitempty"`
	Relationship string         `json:"relationship,omitempty"`
	Role         string         `json:"role,omitempty"`
	Type         string         `json:"type,omitempty"`
	EpisodicDate *time.Time     `json:"episodic_date,omitempty"`
	Description  string         `json:"description,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IdentityMemory is the memory record an identity was extracted from.
type IdentityMemory struct {
	ID       string         `json:"id"`
	Category string         `json:"category,omitempty"`
	Type     string         `json:"type,omitempty"`
	Title    string         `json:"title,omitempty"`
	Summary  string         `json:"summary,omitempty"`
	Details  string         `json:"details,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IdentityPair couples an identity with the memory it came from.
type IdentityPair struct {
	Identity IdentityRecord `json:"identity"`
	Memory   IdentityMemory `json:"memory"`
}
