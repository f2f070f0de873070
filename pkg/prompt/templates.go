package prompt

import "fmt"

// Template names used by the extraction pipeline.
const (
	NameGatekeeper  = "memory_gatekeeper"
	NameActivity    = "memory_activity"
	NameContext     = "memory_context"
	NameExperience  = "memory_experience"
	NameIdentity    = "memory_identity"
	NamePreference  = "memory_preference"
	NameUserPersona = "user_persona"
)

const layerSystemTemplate = `You are a Personal Memory Organizer maintaining long-term memories for {username}.
Work in {language}. The current session date is {session_date}.
Extract at most {top_k} %s memories from the conversation. Each memory must be
self-contained, preserve temporal references, and avoid duplicating the
previously retrieved memories provided in the user message.`

const layerUserTemplate = `Available categories: {available_categories}

Previously retrieved memories:
{retrieved_context}

Session date: {session_date}. Target user: {username}. Language: {language}.
Extract up to {top_k} %s memories from the conversation above.`

const identityUserTemplate = `Available categories: {available_categories}

Previously retrieved memories:
{retrieved_context}

Known identities for the people referenced:
{existing_identities_context}

Session date: {session_date}. Target user: {username}. Language: {language}.
Extract up to {top_k} identity memories about the people mentioned, reusing
known identities where they match instead of inventing duplicates.`

const gatekeeperSystemTemplate = `You are the gatekeeper of a personal memory system for {username}.
Work in {language}. For each memory layer (activity, context, experience,
identity, preference) decide whether the conversation contains material worth
extracting into that layer. Give a short reasoning per layer and a boolean
decision. Be conservative: small talk and greetings warrant no extraction.`

const gatekeeperUserTemplate = `Previously retrieved memories (top {top_k}):
{retrieved_context}

Judge each memory layer against the conversation above and return one decision
per layer.`

const personaSystemTemplate = `You are a persona writer maintaining a living portrait of {username}.
Work in {language}. Using the existing persona, retrieved memories, recent
events, and the user's own notes, write an updated persona document in first
person plural perspective about the user. Commit the result with the
commit_user_persona tool, including a short tagline and a diff summary of what
changed when you can.`

func builtinTemplates() map[string]Template {
	return map[string]Template{
		NameGatekeeper: {
			System: gatekeeperSystemTemplate,
			User:   gatekeeperUserTemplate,
		},
		NameActivity: {
			System: layerSystem("activity"),
			User:   layerUser("activity"),
		},
		NameContext: {
			System: layerSystem("situational context"),
			User:   layerUser("situational context"),
		},
		NameExperience: {
			System: layerSystem("experience"),
			User:   layerUser("experience"),
		},
		NameIdentity: {
			System: layerSystem("identity"),
			User:   identityUserTemplate,
		},
		NamePreference: {
			System: layerSystem("preference"),
			User:   layerUser("preference"),
		},
		NameUserPersona: {
			System: personaSystemTemplate,
		},
	}
}

func layerSystem(kind string) string {
	return fmt.Sprintf(layerSystemTemplate, kind)
}

func layerUser(kind string) string {
	return fmt.Sprintf(layerUserTemplate, kind)
}
