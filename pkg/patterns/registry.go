// Package patterns provides a centralized, compile-once pattern registry for
// payload threat detection. Every regex is compiled at first use and shared
// across all concurrent analyses.
//
// Design principles:
// - COMPILE ONCE: patterns compiled at init, not per-request
// - CATEGORIZED: patterns organized by threat category for targeted scans
// - EXTENSIBLE: new payload patterns are added without touching detector code
package patterns

import (
	"regexp"
	"sync"
)

// Category represents a threat pattern category
type Category string

const (
	// Secret/credential exposure inside a payload (unconditionally severe)
	CategorySecret Category = "secret"

	// Injection syntax carried by a payload
	CategorySQLInjection Category = "sql_injection"
	CategoryXSS          Category = "xss"
	CategoryCommandInj   Category = "command_injection"
	CategoryPathTrav     Category = "path_traversal"
)

// InjectionCategories are the categories that make up the universal
// injection-syntax scan.
var InjectionCategories = []Category{
	CategorySQLInjection, CategoryXSS, CategoryCommandInj, CategoryPathTrav,
}

// Pattern holds a compiled regex with metadata
type Pattern struct {
	Name        string         // Stable finding identifier
	Regex       *regexp.Regexp // Compiled regex (never nil after init)
	Category    Category       // Threat category
	Title       string         // Human-readable finding title
	Description string         // What this pattern detects
}

// Registry holds all compiled patterns, organized by category
type Registry struct {
	byCategory map[Category][]*Pattern
	all        []*Pattern
}

// global singleton - initialized once at first Get
var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry (singleton).
// Thread-safe and guaranteed to be initialized.
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

func newRegistry() *Registry {
	r := &Registry{
		byCategory: make(map[Category][]*Pattern),
		all:        make([]*Pattern, 0, 64),
	}

	r.registerSecretPatterns()
	r.registerInjectionPatterns()

	return r
}

func (r *Registry) register(name, pattern string, category Category, title, description string) {
	p := &Pattern{
		Name:        name,
		Regex:       regexp.MustCompile(pattern),
		Category:    category,
		Title:       title,
		Description: description,
	}
	r.byCategory[category] = append(r.byCategory[category], p)
	r.all = append(r.all, p)
}

// GetByCategory returns all patterns for a category.
// Returns an empty slice if the category is unknown (never nil).
func (r *Registry) GetByCategory(cat Category) []*Pattern {
	if patterns, ok := r.byCategory[cat]; ok {
		return patterns
	}
	return []*Pattern{}
}

// MatchAll returns every pattern in the given categories that matches text.
// Use when all matches are needed for comprehensive scoring.
func (r *Registry) MatchAll(text string, cats ...Category) []*Pattern {
	var matches []*Pattern
	for _, cat := range cats {
		for _, p := range r.byCategory[cat] {
			if p.Regex.MatchString(text) {
				matches = append(matches, p)
			}
		}
	}
	return matches
}

// MatchAny returns the first matching pattern in the given categories, or
// nil. Optimized for early exit.
func (r *Registry) MatchAny(text string, cats ...Category) *Pattern {
	for _, cat := range cats {
		for _, p := range r.byCategory[cat] {
			if p.Regex.MatchString(text) {
				return p
			}
		}
	}
	return nil
}

// TotalPatterns returns the total count of registered patterns
func (r *Registry) TotalPatterns() int {
	return len(r.all)
}

// CategoryCount returns the number of patterns in a category
func (r *Registry) CategoryCount(cat Category) int {
	return len(r.byCategory[cat])
}
