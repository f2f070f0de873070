package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/persomem/persomem-go/pkg/extract"
	"github.com/persomem/persomem-go/pkg/memctx"
	"github.com/persomem/persomem-go/pkg/store"
)

// recordsFromResult flattens a run's layer outputs into store records,
// one per extracted memory. Failed layers contribute nothing.
func recordsFromResult(node *snowflake.Node, result *extract.Result) []*store.Record {
	var records []*store.Record
	add := func(layer extract.Layer, content string, payload any) {
		raw, err := json.Marshal(payload)
		if err != nil {
			return
		}
		records = append(records, &store.Record{
			ID:       node.Generate().Int64(),
			RunID:    result.RunID,
			UserID:   result.Job.UserID,
			SourceID: result.Job.SourceID,
			Layer:    string(layer),
			Content:  content,
			Payload:  string(raw),
		})
	}

	for layer, output := range result.Outputs {
		if output.Err != nil {
			continue
		}
		switch data := output.Data.(type) {
		case *extract.ActivityExtraction:
			for _, item := range data.Activities {
				add(layer, activityFragment(item), item)
			}
		case *extract.ContextExtraction:
			for _, item := range data.Contexts {
				add(layer, contextFragment(item), item)
			}
		case *extract.ExperienceExtraction:
			for _, item := range data.Experiences {
				add(layer, experienceFragment(item), item)
			}
		case *extract.IdentityExtraction:
			for _, item := range data.Identities {
				add(layer, identityFragment(item), item)
			}
		case *extract.PreferenceExtraction:
			for _, item := range data.Preferences {
				add(layer, preferenceFragment(item), item)
			}
		}
	}
	return records
}

func activityFragment(a extract.ExtractedActivity) string {
	fragment := "Activity: " + a.Narrative
	if a.Status != "" {
		fragment += fmt.Sprintf(" (status: %s)", a.Status)
	}
	return fragment
}

func contextFragment(c extract.ExtractedContext) string {
	fragment := "Context: " + c.Title
	if c.Description != "" {
		fragment += " - " + c.Description
	}
	return fragment
}

func experienceFragment(e extract.ExtractedExperience) string {
	fragment := "Experience: " + e.Situation
	if e.KeyLearning != "" {
		fragment += " Learning: " + e.KeyLearning
	}
	return fragment
}

func identityFragment(i extract.ExtractedIdentity) string {
	fragment := "Identity: " + i.Name
	if i.Relationship != "" {
		fragment += fmt.Sprintf(" (%s)", i.Relationship)
	}
	if i.Description != "" {
		fragment += " - " + i.Description
	}
	return fragment
}

func preferenceFragment(p extract.ExtractedPreference) string {
	fragment := "Preference: " + p.ConclusionDirectives
	if p.Suggestions != "" {
		fragment += " Suggestions: " + p.Suggestions
	}
	return fragment
}

// parseTimestamp parses an ISO-8601 timestamp from an extraction
// payload, tolerating the date-only form models sometimes emit.
func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func activityFromStored(record *store.Record) (memctx.ActivityRecord, error) {
	var item extract.ExtractedActivity
	if err := json.Unmarshal([]byte(record.Payload), &item); err != nil {
		return memctx.ActivityRecord{}, err
	}
	return memctx.ActivityRecord{
		ID:        strconv.FormatInt(record.ID, 10),
		Type:      item.ActivityType,
		Status:    item.Status,
		Timezone:  item.Timezone,
		StartsAt:  parseTimestamp(item.StartsAt),
		EndsAt:    parseTimestamp(item.EndsAt),
		Narrative: item.Narrative,
		Notes:     item.Notes,
		Tags:      item.Tags,
	}, nil
}

func contextFromStored(record *store.Record) (memctx.ContextRecord, error) {
	var item extract.ExtractedContext
	if err := json.Unmarshal([]byte(record.Payload), &item); err != nil {
		return memctx.ContextRecord{}, err
	}
	return memctx.ContextRecord{
		ID:            strconv.FormatInt(record.ID, 10),
		Type:          item.Type,
		Title:         item.Title,
		Description:   item.Description,
		CurrentStatus: item.CurrentStatus,
		Tags:          item.Tags,
	}, nil
}

func experienceFromStored(record *store.Record) (memctx.ExperienceRecord, error) {
	var item extract.ExtractedExperience
	if err := json.Unmarshal([]byte(record.Payload), &item); err != nil {
		return memctx.ExperienceRecord{}, err
	}
	return memctx.ExperienceRecord{
		ID:              strconv.FormatInt(record.ID, 10),
		Type:            item.Type,
		Situation:       item.Situation,
		KeyLearning:     item.KeyLearning,
		Action:          item.Action,
		Reasoning:       item.Reasoning,
		PossibleOutcome: item.PossibleOutcome,
		Tags:            item.Tags,
	}, nil
}

func preferenceFromStored(record *store.Record) (memctx.PreferenceRecord, error) {
	var item extract.ExtractedPreference
	if err := json.Unmarshal([]byte(record.Payload), &item); err != nil {
		return memctx.PreferenceRecord{}, err
	}
	return memctx.PreferenceRecord{
		ID:                   strconv.FormatInt(record.ID, 10),
		Type:                 item.Type,
		ConclusionDirectives: item.ConclusionDirectives,
		Suggestions:          item.Suggestions,
		Tags:                 item.Tags,
	}, nil
}

func identityPairFromStored(record *store.Record) (memctx.IdentityPair, error) {
	var item extract.ExtractedIdentity
	if err := json.Unmarshal([]byte(record.Payload), &item); err != nil {
		return memctx.IdentityPair{}, err
	}
	description := item.Description
	if item.Name != "" && !strings.Contains(description, item.Name) {
		description = item.Name + ": " + description
	}
	return memctx.IdentityPair{
		Identity: memctx.IdentityRecord{
			ID:           strconv.FormatInt(record.ID, 10),
			Relationship: item.Relationship,
			Role:         item.Role,
			Type:         item.Type,
			Description:  description,
			Tags:         item.Tags,
		},
		Memory: memctx.IdentityMemory{
			ID:      strconv.FormatInt(record.RunID, 10),
			Summary: record.Content,
		},
	}, nil
}
