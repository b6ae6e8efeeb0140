// Package matching scores a parsed resume against extracted job requirements.
package matching

import (
	"math"
	"strings"

	"github.com/pingjob/matcher/internal/profile"
)

const (
	maxSkillsScore     = 4.0
	maxExperienceScore = 3.0
	maxEducationScore  = 3.0
	maxTotalScore      = 10

	requiredSkillWeight  = 0.3
	preferredSkillWeight = 0.2

	// one level below the required degree earns half credit
	partialEducationScore = 1.5
)

// CalculateMatchingScore compares resume with job and returns a 0-10 score.
//
// The returned sub-scores are rounded independently while the total is the rounded
// sum of the unrounded parts, so the parts do not always add up to the total.
// A skill listed as both required and preferred is counted once per list.
func CalculateMatchingScore(resume *profile.ParsedResume, job *profile.JobRequirements) profile.MatchingScore {
	if resume == nil {
		resume = &profile.ParsedResume{}
	}
	if job == nil {
		job = &profile.JobRequirements{}
	}

	skills, matched := skillsScore(resume.Skills, job.RequiredSkills, job.PreferredSkills)
	experience, experienceMatch := experienceScore(resume.TotalExperienceYears, job.ExperienceLevel)
	education, educationMatch := educationScore(resume.Education, job.Education)

	total := int(roundHalfUp(skills + experience + education))
	if total > maxTotalScore {
		total = maxTotalScore
	}
	if total < 0 {
		total = 0
	}

	return profile.MatchingScore{
		TotalScore:      total,
		SkillsScore:     int(roundHalfUp(skills)),
		ExperienceScore: int(roundHalfUp(experience)),
		EducationScore:  int(roundHalfUp(education)),
		Breakdown: profile.Breakdown{
			SkillsMatched:   matched,
			ExperienceMatch: experienceMatch,
			EducationMatch:  educationMatch,
		},
	}
}

func skillsScore(resumeSkills, required, preferred []string) (float64, []string) {
	candidate := make([]string, 0, len(resumeSkills))
	for _, s := range resumeSkills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			candidate = append(candidate, s)
		}
	}

	score := 0.0
	matched := make([]string, 0)

	for _, skill := range required {
		if hasSkill(candidate, skill) {
			score += requiredSkillWeight
			matched = append(matched, skill)
		}
	}
	for _, skill := range preferred {
		if hasSkill(candidate, skill) {
			score += preferredSkillWeight
			matched = append(matched, skill)
		}
	}

	return math.Min(score, maxSkillsScore), matched
}

// hasSkill reports whether any candidate skill contains skill or is contained by it.
// candidate must already be lowercased.
func hasSkill(candidate []string, skill string) bool {
	want := strings.ToLower(strings.TrimSpace(skill))
	if want == "" {
		return false
	}

	for _, have := range candidate {
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return true
		}
	}
	return false
}

func experienceScore(years float64, level profile.ExperienceLevel) (float64, bool) {
	if math.IsNaN(years) || years < 0 {
		years = 0
	}

	threshold := level.RequiredYears()
	if years >= threshold {
		return maxExperienceScore, true
	}

	return maxExperienceScore * math.Min(years/threshold, 1), false
}

func educationScore(education []profile.Education, required profile.EducationLevel) (float64, bool) {
	highest := 0
	for _, entry := range education {
		if ordinal := profile.DegreeOrdinal(entry.Degree); ordinal > highest {
			highest = ordinal
		}
	}

	want := required.Ordinal()
	switch {
	case highest >= want:
		return maxEducationScore, true
	case highest == want-1:
		return partialEducationScore, false
	default:
		return 0, false
	}
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
