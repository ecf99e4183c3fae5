package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsComplete(t *testing.T) {
	t.Parallel()

	c := Default()
	require.NoError(t, c.Validate())
	assert.NotEmpty(t, c.Greeting)
	assert.Len(t, c.Options.AgeClarify, 4)
	assert.Contains(t, c.Prompt(domain.StepAgeClarify), "%d")
}

func TestLoadOverlaysFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	override := "greeting: \"Salem!\"\nprompts:\n  name: \"Atynyz kim?\"\n"
	require.NoError(t, os.WriteFile(path, []byte(override), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Salem!", c.Greeting)
	assert.Equal(t, "Atynyz kim?", c.Prompt(domain.StepName))
	// Untouched keys keep their embedded defaults.
	assert.Equal(t, Default().Prompt(domain.StepCompany), c.Prompt(domain.StepCompany))
}

func TestLoadRejectsBrokenDisambiguation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	override := "options:\n  age_clarify:\n    - {label: \"Exactly\", value: \"exact\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(override), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLabelFallsBackToValue(t *testing.T) {
	t.Parallel()

	opts := []Option{{Label: "Married", Value: "married"}}
	assert.Equal(t, "Married", Label(opts, "married"))
	assert.Equal(t, "unknown", Label(opts, "unknown"))
}

func TestAnswer(t *testing.T) {
	t.Parallel()

	c := Default()
	fields := map[domain.Slot]string{domain.SlotCompany: "Kaspi"}
	lookup := func(slot domain.Slot) string { return fields[slot] }

	tests := []struct {
		name     string
		question string
		contains string
		wantOK   bool
	}{
		{name: "company info", question: "Кто вы?", contains: "Nonna Marketing", wantOK: true},
		{name: "price", question: "How MUCH   does it cost?", contains: "300-500K KZT", wantOK: true},
		{name: "profile value", question: "Как называется моя компания?", contains: "Your company: Kaspi", wantOK: true},
		{name: "profile missing", question: "what's my name?", contains: "How should I address you?", wantOK: true},
		{name: "no match", question: "Why do you need this?", wantOK: false},
		{name: "empty", question: "  ", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := c.Answer(tt.question, lookup)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Contains(t, got, tt.contains)
			}
		})
	}
}

func TestLoadRejectsKnowledgeForFilterSlots(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	override := "knowledge:\n  profile:\n    - {slot: cities, phrases: [\"my cities\"], text: \"%s\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(override), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
