package profile

import "strings"

// ExperienceLevel is the seniority a job asks for.
type ExperienceLevel string

const (
	ExperienceEntry  ExperienceLevel = "entry"
	ExperienceMid    ExperienceLevel = "mid"
	ExperienceSenior ExperienceLevel = "senior"
)

// ParseExperienceLevel maps a free-form value onto a known level.
// The second result is false when the value was not recognized and the mid default was used.
func ParseExperienceLevel(s string) (ExperienceLevel, bool) {
	switch ExperienceLevel(strings.ToLower(strings.TrimSpace(s))) {
	case ExperienceEntry:
		return ExperienceEntry, true
	case ExperienceMid:
		return ExperienceMid, true
	case ExperienceSenior:
		return ExperienceSenior, true
	default:
		return ExperienceMid, false
	}
}

// RequiredYears returns the minimum years of experience expected for the level.
// Unrecognized levels are treated as mid.
func (l ExperienceLevel) RequiredYears() float64 {
	switch l {
	case ExperienceEntry:
		return 0
	case ExperienceSenior:
		return 7
	default:
		return 3
	}
}

// EducationLevel is the minimum degree a job asks for.
type EducationLevel string

const (
	EducationHighSchool EducationLevel = "high_school"
	EducationBachelor   EducationLevel = "bachelor"
	EducationMaster     EducationLevel = "master"
	EducationPhD        EducationLevel = "phd"
)

// ParseEducationLevel maps a free-form value onto a known level.
// The second result is false when the value was not recognized and the bachelor default was used.
func ParseEducationLevel(s string) (EducationLevel, bool) {
	switch EducationLevel(strings.ToLower(strings.TrimSpace(s))) {
	case EducationHighSchool:
		return EducationHighSchool, true
	case EducationBachelor:
		return EducationBachelor, true
	case EducationMaster:
		return EducationMaster, true
	case EducationPhD:
		return EducationPhD, true
	default:
		return EducationBachelor, false
	}
}

// Ordinal ranks the level: high_school=1, bachelor=2, master=3, phd=4.
// Unrecognized levels rank as bachelor.
func (l EducationLevel) Ordinal() int {
	switch l {
	case EducationHighSchool:
		return 1
	case EducationMaster:
		return 3
	case EducationPhD:
		return 4
	default:
		return 2
	}
}

// DegreeOrdinal classifies a free-text degree name by substring, checking the
// highest levels first. Degrees that match nothing rank 0.
func DegreeOrdinal(degree string) int {
	d := strings.ToLower(degree)
	switch {
	case strings.Contains(d, "phd"), strings.Contains(d, "doctorate"):
		return 4
	case strings.Contains(d, "master"), strings.Contains(d, "mba"):
		return 3
	case strings.Contains(d, "bachelor"):
		return 2
	case strings.Contains(d, "high school"), strings.Contains(d, "diploma"):
		return 1
	default:
		return 0
	}
}
