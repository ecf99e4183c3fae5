// Package catalog holds the user-facing prompt texts and enumerated options.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ashureev/influencer-desk/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Option is one enumerated choice.
type Option struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// Messages are the fixed non-prompt texts.
type Messages struct {
	Locked             string `yaml:"locked"`
	PersistFailed      string `yaml:"persist_failed"`
	NoMatches          string `yaml:"no_matches"`
	SearchUnavailable  string `yaml:"search_unavailable"`
	Internal           string `yaml:"internal"`
	Stale              string `yaml:"stale"`
	PickAtLeastOne     string `yaml:"pick_at_least_one"`
	QuestionAck        string `yaml:"question_ack"`
	ResultsHeader      string `yaml:"results_header"`
	PayRequired        string `yaml:"pay_required"`
	PayCancelled       string `yaml:"pay_cancelled"`
	Finalized          string `yaml:"finalized"`
	PickBeforeFinalize string `yaml:"pick_before_finalize"`
	ExportReady        string `yaml:"export_ready"`
	Restarted          string `yaml:"restarted"`
}

// Labels are the button captions shared across steps.
type Labels struct {
	Skip       string `yaml:"skip"`
	Done       string `yaml:"done"`
	Prev       string `yaml:"prev"`
	Next       string `yaml:"next"`
	Pay        string `yaml:"pay"`
	Cancel     string `yaml:"cancel"`
	Finalize   string `yaml:"finalize"`
	NewSearch  string `yaml:"new_search"`
	Restart    string `yaml:"restart"`
	SharePhone string `yaml:"share_phone"`
}

// Options lists the enumerated choices per step.
type Options struct {
	Languages     []Option `yaml:"languages"`
	Marital       []Option `yaml:"marital"`
	Children      []Option `yaml:"children"`
	ChildrenCount []Option `yaml:"children_count"`
	AgeClarify    []Option `yaml:"age_clarify"`
	Decision      []Option `yaml:"decision"`
	ExportFormats []Option `yaml:"export_formats"`
}

// KnownAnswer is a canned reply for questions containing any of Phrases.
type KnownAnswer struct {
	Phrases []string `yaml:"phrases"`
	Text    string   `yaml:"text"`
}

// ProfileAnswer repeats a registration field back to the user. Text holds
// one %s for the stored value; Missing is used while the field is empty.
type ProfileAnswer struct {
	Slot    domain.Slot `yaml:"slot"`
	Phrases []string    `yaml:"phrases"`
	Text    string      `yaml:"text"`
	Missing string      `yaml:"missing"`
}

// Knowledge answers common user questions without a manager.
type Knowledge struct {
	Profile []ProfileAnswer `yaml:"profile"`
	Answers []KnownAnswer   `yaml:"answers"`
}

// Catalog is the full set of texts used to render views.
type Catalog struct {
	Greeting  string                 `yaml:"greeting"`
	Prompts   map[domain.Step]string `yaml:"prompts"`
	Messages  Messages               `yaml:"messages"`
	Labels    Labels                 `yaml:"labels"`
	Options   Options                `yaml:"options"`
	Knowledge Knowledge              `yaml:"knowledge"`
}

// requiredPrompts are the steps every catalog must be able to ask.
var requiredPrompts = []domain.Step{
	domain.StepName, domain.StepCompany, domain.StepIndustry, domain.StepPosition, domain.StepPhone,
	domain.StepCities, domain.StepTopics, domain.StepAge, domain.StepAgeClarify, domain.StepLanguage,
	domain.StepDecision, domain.StepMaritalStatus, domain.StepChildren, domain.StepChildrenCount,
	domain.StepFollowers, domain.StepContentFormats, domain.StepBudget,
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := parse(defaultCatalog, &Catalog{})
	if err != nil {
		panic("catalog: embedded catalog is invalid: " + err.Error())
	}
	return c
}

// Load returns the embedded catalog overlaid with the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (*Catalog, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return parse(data, base)
}

func parse(data []byte, into *Catalog) (*Catalog, error) {
	if err := yaml.Unmarshal(data, into); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := into.Validate(); err != nil {
		return nil, err
	}
	return into, nil
}

// Validate checks that every askable step has a prompt and the
// disambiguation offers exactly four readings.
func (c *Catalog) Validate() error {
	for _, step := range requiredPrompts {
		if c.Prompts[step] == "" {
			return fmt.Errorf("catalog: missing prompt for step %q", step)
		}
	}
	if len(c.Options.AgeClarify) != 4 {
		return fmt.Errorf("catalog: age_clarify needs 4 options, got %d", len(c.Options.AgeClarify))
	}
	for i, a := range c.Knowledge.Profile {
		if !a.Slot.IsRegistration() {
			return fmt.Errorf("catalog: knowledge profile entry %d: %q is not a registration field", i, a.Slot)
		}
		if len(a.Phrases) == 0 || a.Text == "" {
			return fmt.Errorf("catalog: knowledge profile entry %d needs phrases and text", i)
		}
	}
	for i, a := range c.Knowledge.Answers {
		if len(a.Phrases) == 0 || a.Text == "" {
			return fmt.Errorf("catalog: knowledge answer %d needs phrases and text", i)
		}
	}
	return nil
}

// Answer looks up a reply to a user question. Profile questions are checked
// before the general answers; field returns the stored registration value.
func (c *Catalog) Answer(question string, field func(domain.Slot) string) (string, bool) {
	q := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	if q == "" {
		return "", false
	}
	for _, a := range c.Knowledge.Profile {
		if !mentions(q, a.Phrases) {
			continue
		}
		if v := field(a.Slot); v != "" {
			return fmt.Sprintf(a.Text, v), true
		}
		if a.Missing != "" {
			return a.Missing, true
		}
	}
	for _, a := range c.Knowledge.Answers {
		if mentions(q, a.Phrases) {
			return a.Text, true
		}
	}
	return "", false
}

func mentions(q string, phrases []string) bool {
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" && strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// Prompt returns the question text for a step.
func (c *Catalog) Prompt(step domain.Step) string {
	return c.Prompts[step]
}

// Label returns the caption for an option value, or the value itself.
func Label(opts []Option, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
