// Package jobs loads the job postings that resumes are scored against.
package jobs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pingjob/matcher/internal/profile"
)

const catalogueKey = "jobs"

var validate = validator.New()

type Catalogue struct {
	Items []*Job
}

type Job struct {
	ID              string `mapstructure:"id" json:"id" validate:"required"`
	Title           string `mapstructure:"title" json:"title" validate:"required"`
	Company         string `mapstructure:"company" json:"company,omitempty"`
	Description     string `mapstructure:"description" json:"description"`
	Requirements    string `mapstructure:"requirements" json:"requirements"`
	ExperienceLevel string `mapstructure:"experience_level" json:"experience_level"`
}

// Load reads a YAML or JSON file holding a top-level "jobs" list.
func Load(path string) (*Catalogue, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("jobs file is not configured")
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read jobs file %q: %w", path, err)
	}

	var items []*Job
	if err := v.UnmarshalKey(catalogueKey, &items); err != nil {
		return nil, fmt.Errorf("decode jobs file %q: %w", path, err)
	}

	catalogue := &Catalogue{Items: items}
	if err := catalogue.Validate(); err != nil {
		return nil, fmt.Errorf("jobs file %q: %w", path, err)
	}

	return catalogue, nil
}

// Validate checks that every job has an id and a title and that ids are unique.
func (c *Catalogue) Validate() error {
	seen := make(map[string]struct{}, len(c.Items))
	for idx, job := range c.Items {
		if job == nil {
			return fmt.Errorf("job #%d is empty", idx)
		}
		if err := validate.Struct(job); err != nil {
			return fmt.Errorf("job #%d: %w", idx, err)
		}
		if _, ok := seen[job.ID]; ok {
			return fmt.Errorf("duplicate job id %q", job.ID)
		}
		seen[job.ID] = struct{}{}
	}
	return nil
}

func (c *Catalogue) Len() int {
	return len(c.Items)
}

func (c *Catalogue) FindByID(id string) *Job {
	for _, job := range c.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Labels returns one selection label per job, starting with the job id.
func (c *Catalogue) Labels() []string {
	labels := make([]string, 0, len(c.Items))
	for _, job := range c.Items {
		labels = append(labels, job.Label())
	}
	return labels
}

// Exclude removes the jobs with the given ids and returns the removed ids. Order is not preserved.
func (c *Catalogue) Exclude(ids []string) []string {
	var excluded []string
	for _, id := range ids {
		for idx, job := range c.Items {
			if job.ID == id {
				c.removeByIndex(idx)
				excluded = append(excluded, id)
				break
			}
		}
	}
	return excluded
}

func (c *Catalogue) removeByIndex(idx int) {
	c.Items[idx] = c.Items[len(c.Items)-1]
	c.Items = c.Items[:len(c.Items)-1]
}

func (j *Job) Label() string {
	if j.Company == "" {
		return fmt.Sprintf("%s %s", j.ID, j.Title)
	}
	return fmt.Sprintf("%s %s / %s", j.ID, j.Title, j.Company)
}

// Posting returns the fields sent to requirement extraction.
func (j *Job) Posting() profile.JobPosting {
	return profile.JobPosting{
		Title:           j.Title,
		Description:     j.Description,
		Requirements:    j.Requirements,
		ExperienceLevel: j.ExperienceLevel,
	}
}
