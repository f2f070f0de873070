package memctx

import (
	"strconv"
	"strings"
	"time"
)

// MemoryInput carries the four record categories of one retrieval pass.
type MemoryInput struct {
	Activities  []ActivityRecord
	Contexts    []ContextRecord
	Experiences []ExperienceRecord
	Preferences []PreferenceRecord

	// FetchedAt is when the records were retrieved. Zero means "now".
	FetchedAt time.Time

	SourceID string
	UserID   string
}

// MemoryContextProvider serializes retrieved memories into the
// user_memories XML block embedded in extraction prompts.
type MemoryContextProvider struct{}

// NewMemoryContextProvider creates the provider.
func NewMemoryContextProvider() *MemoryContextProvider {
	return &MemoryContextProvider{}
}

// Build serializes the input into one BuiltContext. Records are emitted
// in input order within each category; categories are emitted in the
// fixed order activities, contexts, experiences, preferences.
func (p *MemoryContextProvider) Build(input MemoryInput) BuiltContext {
	fetchedAt := input.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	x := &xmlBuilder{}
	rootAttrs := []attr{
		{"activities", strconv.Itoa(len(input.Activities))},
		{"contexts", strconv.Itoa(len(input.Contexts))},
		{"experiences", strconv.Itoa(len(input.Experiences))},
		{"preferences", strconv.Itoa(len(input.Preferences))},
		{"memory_fetched_at", fetchedAt.Format(time.RFC3339)},
	}

	empty := len(input.Activities) == 0 && len(input.Contexts) == 0 &&
		len(input.Experiences) == 0 && len(input.Preferences) == 0
	x.openTag("user_memories", rootAttrs, empty)
	if !empty {
		for _, r := range input.Activities {
			p.writeActivity(x, r)
		}
		for _, r := range input.Contexts {
			p.writeContext(x, r)
		}
		for _, r := range input.Experiences {
			p.writeExperience(x, r)
		}
		for _, r := range input.Preferences {
			p.writePreference(x, r)
		}
		x.closeTag("user_memories")
	}

	return BuiltContext{
		Context:  x.String(),
		Metadata: map[string]any{},
		SourceID: input.SourceID,
		UserID:   input.UserID,
	}
}

func recordAttrs(id string, similarity *float64, typeName, typeValue string) []attr {
	attrs := []attr{{"id", id}}
	if similarity != nil {
		attrs = append(attrs, attr{"similarity", formatSimilarity(*similarity)})
	}
	return optionalAttr(attrs, typeName, typeValue)
}

func (p *MemoryContextProvider) writeActivity(x *xmlBuilder, r ActivityRecord) {
	attrs := recordAttrs(r.ID, r.Similarity, "activity_type", r.Type)
	attrs = optionalAttr(attrs, "status", r.Status)
	attrs = optionalAttr(attrs, "timezone", r.Timezone)
	if r.StartsAt != nil {
		attrs = append(attrs, attr{"starts_at", r.StartsAt.Format(time.RFC3339)})
	}
	if r.EndsAt != nil {
		attrs = append(attrs, attr{"ends_at", r.EndsAt.Format(time.RFC3339)})
	}

	x.openTag("user_memories_activity", attrs, false)
	x.optionalTextElement("narrative", r.Narrative)
	x.optionalTextElement("notes", r.Notes)
	x.optionalTextElement("feedback", r.Feedback)
	for _, a := range r.locations() {
		x.textElement("associated_location", a.String())
	}
	for _, a := range r.AssociatedObjects {
		x.textElement("associated_object", a.String())
	}
	for _, a := range r.AssociatedSubjects {
		x.textElement("associated_subject", a.String())
	}
	x.optionalTextElement("tags", strings.Join(r.Tags, ","))
	x.closeTag("user_memories_activity")
}

func (p *MemoryContextProvider) writeContext(x *xmlBuilder, r ContextRecord) {
	x.openTag("user_memories_context", recordAttrs(r.ID, r.Similarity, "type", r.Type), false)
	x.textElement("title", r.Title)
	x.textElement("description", r.Description)
	x.optionalTextElement("current_status", r.CurrentStatus)
	x.optionalTextElement("tags", strings.Join(r.Tags, ","))
	x.closeTag("user_memories_context")
}

func (p *MemoryContextProvider) writeExperience(x *xmlBuilder, r ExperienceRecord) {
	x.openTag("user_memories_experience", recordAttrs(r.ID, r.Similarity, "type", r.Type), false)
	x.textElement("situation", r.Situation)
	x.textElement("key_learning", r.KeyLearning)
	x.optionalTextElement("action", r.Action)
	x.optionalTextElement("reasoning", r.Reasoning)
	x.optionalTextElement("possible_outcome", r.PossibleOutcome)
	x.optionalTextElement("tags", strings.Join(r.Tags, ","))
	x.closeTag("user_memories_experience")
}

func (p *MemoryContextProvider) writePreference(x *xmlBuilder, r PreferenceRecord) {
	x.openTag("user_memories_preference", recordAttrs(r.ID, r.Similarity, "type", r.Type), false)
	x.textElement("conclusion_directives", r.ConclusionDirectives)
	x.optionalTextElement("suggestions", r.Suggestions)
	x.optionalTextElement("tags", strings.Join(r.Tags, ","))
	x.closeTag("user_memories_preference")
}
