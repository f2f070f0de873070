package memctx

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// IdentityInput carries the identity/memory pairs of one retrieval pass.
type IdentityInput struct {
	Pairs []IdentityPair

	// FetchedAt is when the pairs were retrieved. Zero means "now".
	FetchedAt time.Time

	SourceID string
	UserID   string
}

// IdentityContextProvider serializes known identities into the
// user_memories_identities XML block used by the identity layer.
type IdentityContextProvider struct{}

// NewIdentityContextProvider creates the provider.
func NewIdentityContextProvider() *IdentityContextProvider {
	return &IdentityContextProvider{}
}

// Build serializes the input pairs in order into one BuiltContext.
func (p *IdentityContextProvider) Build(input IdentityInput) BuiltContext {
	fetchedAt := input.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	x := &xmlBuilder{}
	rootAttrs := []attr{
		{"identities", strconv.Itoa(len(input.Pairs))},
		{"memory_fetched_at", fetchedAt.Format(time.RFC3339)},
	}
	x.openTag("user_memories_identities", rootAttrs, len(input.Pairs) == 0)
	for _, pair := range input.Pairs {
		p.writePair(x, pair)
	}
	if len(input.Pairs) > 0 {
		x.closeTag("user_memories_identities")
	}

	return BuiltContext{
		Context:  x.String(),
		Metadata: map[string]any{},
		SourceID: input.SourceID,
		UserID:   input.UserID,
	}
}

// metadataJSON stringifies free-form metadata for embedding as element
// text. Empty maps and marshal failures yield "", which suppresses the
// element.
func metadataJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	out, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(out)
}

func (p *IdentityContextProvider) writePair(x *xmlBuilder, pair IdentityPair) {
	identity, memory := pair.Identity, pair.Memory

	attrs := []attr{{"id", identity.ID}}
	attrs = optionalAttr(attrs, "user_memory_id", identity.UserMemoryID)
	attrs = optionalAttr(attrs, "memory_id", memory.ID)
	attrs = optionalAttr(attrs, "relationship", identity.Relationship)
	attrs = optionalAttr(attrs, "role", identity.Role)
	attrs = optionalAttr(attrs, "type", identity.Type)
	if identity.EpisodicDate != nil {
		attrs = append(attrs, attr{"episodic_date", identity.EpisodicDate.Format(time.RFC3339)})
	}
	attrs = optionalAttr(attrs, "memory_category", memory.Category)
	attrs = optionalAttr(attrs, "memory_type", memory.Type)

	x.openTag("user_memories_identity", attrs, false)
	x.optionalTextElement("identity_description", identity.Description)
	x.optionalTextElement("identity_tags", strings.Join(identity.Tags, ","))
	x.optionalTextElement("identity_metadata", metadataJSON(identity.Metadata))
	x.optionalTextElement("memory_title", memory.Title)
	x.optionalTextElement("memory_summary", memory.Summary)
	x.optionalTextElement("memory_details", memory.Details)
	x.optionalTextElement("memory_tags", strings.Join(memory.Tags, ","))
	x.optionalTextElement("memory_metadata", metadataJSON(memory.Metadata))
	x.closeTag("user_memories_identity")
}
