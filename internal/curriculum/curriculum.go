// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package curriculum holds the static course catalogue shown in the side
// panel, the tutor system instruction and the welcome greeting.
package curriculum

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/topics.yaml
var builtinTopics []byte

//go:embed data/tutor.md
var tutorInstruction string

// Details block classes used by the tutor instruction. Renderers fold these.
const (
	HintClass   = "hint-details"
	AnswerClass = "answer-details"
)

// =============================================================================
// TYPES
// =============================================================================

// Topic is one curriculum entry.
type Topic struct {
	Name    string `yaml:"name" json:"name"`
	Summary string `yaml:"summary,omitempty" json:"summary,omitempty"`
}

// Curriculum is loaded once at startup and never mutated.
type Curriculum struct {
	Title    string  `yaml:"title"`
	Subtitle string  `yaml:"subtitle"`
	Greeting string  `yaml:"greeting"`
	Topics   []Topic `yaml:"topics"`
}

// ValidationError reports a malformed curriculum file.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("curriculum: %s: %s", e.Field, e.Message)
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the built-in curriculum.
func Default() *Curriculum {
	c, err := Parse(builtinTopics)
	if err != nil {
		panic(fmt.Sprintf("built-in curriculum is invalid: %v", err))
	}
	return c
}

// Load reads a curriculum override from path. An empty path returns the
// built-in curriculum. Fields missing from the file fall back to the
// built-in values; topics replace the built-in list entirely.
func Load(path string) (*Curriculum, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	def := Default()
	if c.Title == "" {
		c.Title = def.Title
	}
	if c.Subtitle == "" {
		c.Subtitle = c.defaultSubtitle()
	}
	if c.Greeting == "" {
		c.Greeting = def.Greeting
	}
	return c, nil
}

// Parse decodes and validates curriculum YAML. Unknown fields are rejected.
func Parse(data []byte) (*Curriculum, error) {
	var c Curriculum
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Curriculum) validate() error {
	if len(c.Topics) == 0 {
		return &ValidationError{Field: "topics", Message: "at least one topic is required"}
	}
	seen := make(map[string]bool, len(c.Topics))
	for i := range c.Topics {
		t := &c.Topics[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("topics[%d].name", i), Message: "must not be empty"}
		}
		key := strings.ToLower(t.Name)
		if seen[key] {
			return &ValidationError{Field: fmt.Sprintf("topics[%d].name", i), Message: "duplicate topic " + t.Name}
		}
		seen[key] = true
	}
	return nil
}

func (c *Curriculum) defaultSubtitle() string {
	return "Learn " + strings.Join(c.Names(), ", ")
}

// =============================================================================
// QUERIES
// =============================================================================

// Names returns topic names in catalogue order.
func (c *Curriculum) Names() []string {
	names := make([]string, len(c.Topics))
	for i, t := range c.Topics {
		names[i] = t.Name
	}
	return names
}

// Find looks a topic up by name, ignoring case.
func (c *Curriculum) Find(name string) (Topic, bool) {
	name = strings.TrimSpace(name)
	for _, t := range c.Topics {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Topic{}, false
}

// ErrUnknownTopic is returned by Prompt for names not in the catalogue.
var ErrUnknownTopic = errors.New("unknown topic")

// Prompt returns the submission text for a catalogue topic.
func (c *Curriculum) Prompt(name string) (string, error) {
	t, ok := c.Find(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, name)
	}
	return PromptFor(t.Name), nil
}

// PromptFor synthesizes the message sent when a topic is selected.
func PromptFor(topic string) string {
	return fmt.Sprintf("I want to learn %s. Please teach me step-by-step from the basics, like an online textbook course.", topic)
}

// SystemInstruction returns the tutor instruction for this catalogue.
func (c *Curriculum) SystemInstruction() string {
	return strings.ReplaceAll(tutorInstruction, "{{languages}}", joinNatural(c.Names()))
}

// joinNatural joins names as "A, B, and C".
func joinNatural(names []string) string {
	switch len(names) {
	case 0:
		return "programming"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}
