package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

// DecodeResume converts a model-produced JSON object into a ParsedResume.
// Missing or mistyped fields fall back to empty slices and a zero experience total.
func DecodeResume(data map[string]any) (*ParsedResume, error) {
	resume := &ParsedResume{
		Skills:               stringSlice(data["skills"]),
		Experience:           make([]Experience, 0),
		Education:            make([]Education, 0),
		Companies:            distinct(stringSlice(data["companies"])),
		TotalExperienceYears: nonNegative(data["totalExperienceYears"]),
	}

	for _, item := range objects(data["experience"]) {
		var fields experienceFields
		if err := decodeEntry(item, &fields); err != nil {
			return nil, fmt.Errorf("decode experience entry: %w", err)
		}
		resume.Experience = append(resume.Experience, Experience{
			Company:          fields.Company,
			Position:         fields.Position,
			Duration:         fields.Duration,
			Responsibilities: stringSlice(item["responsibilities"]),
		})
	}

	for _, item := range objects(data["education"]) {
		var entry Education
		if err := decodeEntry(item, &entry); err != nil {
			return nil, fmt.Errorf("decode education entry: %w", err)
		}
		resume.Education = append(resume.Education, entry)
	}

	if err := validate.Struct(resume); err != nil {
		return nil, fmt.Errorf("validate resume: %w", err)
	}

	return resume, nil
}

// Field names reported by DecodeJobRequirements when a value fell back to its default.
const (
	FieldExperienceLevel = "experienceLevel"
	FieldEducation       = "education"
	FieldJobTitle        = "jobTitle"
)

// DecodeJobRequirements converts a model-produced JSON object into JobRequirements.
// Missing arrays become empty, the level defaults to mid, education to bachelor and
// the job title to fallbackTitle. The second result names the scalar fields that
// were missing or unrecognized and took their default.
func DecodeJobRequirements(data map[string]any, fallbackTitle string) (*JobRequirements, []string, error) {
	defaulted := make([]string, 0)

	level, known := ParseExperienceLevel(coerceString(data[FieldExperienceLevel]))
	if !known {
		defaulted = append(defaulted, FieldExperienceLevel)
	}

	education, known := ParseEducationLevel(coerceString(data[FieldEducation]))
	if !known {
		defaulted = append(defaulted, FieldEducation)
	}

	title := coerceString(data[FieldJobTitle])
	if title == "" {
		title = strings.TrimSpace(fallbackTitle)
		defaulted = append(defaulted, FieldJobTitle)
	}

	reqs := &JobRequirements{
		RequiredSkills:   stringSlice(data["requiredSkills"]),
		PreferredSkills:  stringSlice(data["preferredSkills"]),
		ExperienceLevel:  level,
		Education:        education,
		JobTitle:         title,
		Responsibilities: stringSlice(data["responsibilities"]),
	}

	if err := validate.Struct(reqs); err != nil {
		return nil, nil, fmt.Errorf("validate job requirements: %w", err)
	}

	return reqs, defaulted, nil
}

// experienceFields is the scalar part of an experience entry.
type experienceFields struct {
	Company  string `json:"company"`
	Position string `json:"position"`
	Duration string `json:"duration"`
}

// decodeEntry fills the string fields of target from item. Non-string values are
// rendered as text so a numeric year or gpa still lands in the record.
func decodeEntry(item map[string]any, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
		DecodeHook: mapstructure.DecodeHookFuncType(func(_ reflect.Type, to reflect.Type, data any) (any, error) {
			if to.Kind() == reflect.String {
				return coerceString(data), nil
			}
			return data, nil
		}),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(item)
}

func objects(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	result := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			result = append(result, obj)
		}
	}
	return result
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, v)
	}
	return result
}

func nonNegative(v any) float64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
