// Package profile holds the structured records exchanged by the matching subsystem:
// parsed resumes, job requirements, job postings and matching scores.
package profile

// ParsedResume is the structured form of a resume produced by the structuring step.
type ParsedResume struct {
	Skills               []string     `json:"skills"`
	Experience           []Experience `json:"experience" validate:"dive"`
	Education            []Education  `json:"education" validate:"dive"`
	Companies            []string     `json:"companies"`
	TotalExperienceYears float64      `json:"totalExperienceYears" validate:"gte=0"`
}

// Experience is a single position held by the candidate.
type Experience struct {
	Company          string   `json:"company"`
	Position         string   `json:"position"`
	Duration         string   `json:"duration"`
	Responsibilities []string `json:"responsibilities"`
}

// Education is a single degree or diploma held by the candidate.
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
	GPA         string `json:"gpa,omitempty"`
}

// JobPosting carries the free-text fields of a posting. ExperienceLevel is the
// level advertised by the posting and is only a hint for the extraction step.
type JobPosting struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Requirements    string `json:"requirements"`
	ExperienceLevel string `json:"experience_level"`
}

// JobRequirements is the structured form of a posting produced by the extraction step.
type JobRequirements struct {
	RequiredSkills   []string        `json:"requiredSkills"`
	PreferredSkills  []string        `json:"preferredSkills"`
	ExperienceLevel  ExperienceLevel `json:"experienceLevel" validate:"oneof=entry mid senior"`
	Education        EducationLevel  `json:"education" validate:"oneof=high_school bachelor master phd"`
	JobTitle         string          `json:"jobTitle"`
	Responsibilities []string        `json:"responsibilities"`
}

// MatchingScore is the weighted comparison of one resume against one job.
type MatchingScore struct {
	TotalScore      int       `json:"totalScore"`
	SkillsScore     int       `json:"skillsScore"`
	ExperienceScore int       `json:"experienceScore"`
	EducationScore  int       `json:"educationScore"`
	Breakdown       Breakdown `json:"breakdown"`
}

// Breakdown explains which parts of a job the candidate satisfied.
type Breakdown struct {
	SkillsMatched   []string `json:"skillsMatched"`
	ExperienceMatch bool     `json:"experienceMatch"`
	EducationMatch  bool     `json:"educationMatch"`
}
