// Package categorize assigns spending categories to statement descriptions
// using an ordered list of keyword rules kept as TOML data.
package categorize

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"financas/internal/core"
)

//go:embed default_rules.toml
var defaultRules []byte

var ErrNoRules = errors.New("rules file defines no rules")

// Rule maps a category to the substrings that select it.
type Rule struct {
	Category string   `toml:"category"`
	Keywords []string `toml:"keywords"`
}

type rulesFile struct {
	Fallback string `toml:"fallback"`
	Rules    []Rule `toml:"rule"`
}

// Categorizer matches descriptions against rules in declaration order.
type Categorizer struct {
	rules    []Rule
	fallback string
}

// New builds a categorizer; keywords and categories are normalized to lowercase.
func New(rules []Rule, fallback string) *Categorizer {
	c := &Categorizer{fallback: core.NormalizeCategoryName(fallback)}
	for _, r := range rules {
		nr := Rule{Category: core.NormalizeCategoryName(r.Category)}
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(kw); strings.TrimSpace(kw) != "" {
				nr.Keywords = append(nr.Keywords, kw)
			}
		}
		if nr.Category != "" && len(nr.Keywords) > 0 {
			c.rules = append(c.rules, nr)
		}
	}
	return c
}

// Default returns the built-in rule set.
func Default() *Categorizer {
	c, err := parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return c
}

// LoadRules reads a TOML rules file. An empty path yields the built-in rules.
func LoadRules(path string) (*Categorizer, error) {
	if path == "" {
		return Default(), nil
	}
	var f rulesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoRules)
	}
	return New(f.Rules, f.Fallback), nil
}

func parse(data []byte) (*Categorizer, error) {
	var f rulesFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, err
	}
	if len(f.Rules) == 0 {
		return nil, ErrNoRules
	}
	return New(f.Rules, f.Fallback), nil
}

// Categorize returns the category of the first rule with a keyword contained
// in the description, or the fallback.
func (c *Categorizer) Categorize(description string) string {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return r.Category
			}
		}
	}
	return c.fallback
}

// Categories lists the distinct categories the rules can produce, in rule order.
func (c *Categorizer) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range c.rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	if c.fallback != "" && !seen[c.fallback] {
		out = append(out, c.fallback)
	}
	return out
}
