// Package category assigns detected issues to an administrative category by
// keyword matching.
package category

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
)

// fileFormat is the on-disk layout of the category configuration.
type fileFormat struct {
	MiscCategory *struct {
		Name string `json:"name"`
	} `json:"misc_category"`
	Categories []model.CategoryRule `json:"categories"`
}

// LoadConfig reads and validates a category configuration file. Any problem
// is reported as common.ErrInvalidConfig.
func LoadConfig(path string) (model.CategoryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.CategoryConfig{}, fmt.Errorf("%w: failed to load %s: %w", common.ErrInvalidConfig, path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return model.CategoryConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates category configuration JSON.
func ParseConfig(data []byte) (model.CategoryConfig, error) {
	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.CategoryConfig{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	if raw.MiscCategory == nil || strings.TrimSpace(raw.MiscCategory.Name) == "" {
		return model.CategoryConfig{}, fmt.Errorf("%w: misc_category.name is required", common.ErrInvalidConfig)
	}

	cfg := model.CategoryConfig{
		Categories: raw.Categories,
		Misc:       raw.MiscCategory.Name,
	}
	if err := Validate(cfg); err != nil {
		return model.CategoryConfig{}, err
	}
	return cfg, nil
}

// Validate checks that a configuration can categorize anything at all.
func Validate(cfg model.CategoryConfig) error {
	if strings.TrimSpace(cfg.Misc) == "" {
		return fmt.Errorf("%w: fallback category name is empty", common.ErrInvalidConfig)
	}
	if len(cfg.Categories) == 0 {
		return fmt.Errorf("%w: no categories defined", common.ErrInvalidConfig)
	}
	for i, rule := range cfg.Categories {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("%w: category at index %d has no name", common.ErrInvalidConfig, i)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("%w: category %q has no keywords", common.ErrInvalidConfig, rule.Name)
		}
	}
	return nil
}

// Categorizer picks the category whose keywords occur most often in issue
// text. It is immutable and safe for concurrent use.
type Categorizer struct {
	misc  string
	rules []model.CategoryRule
}

// New creates a categorizer from a validated configuration.
func New(cfg model.CategoryConfig) (*Categorizer, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	rules := make([]model.CategoryRule, len(cfg.Categories))
	for i, rule := range cfg.Categories {
		keywords := make([]string, len(rule.Keywords))
		for j, kw := range rule.Keywords {
			keywords[j] = strings.ToLower(kw)
		}
		rules[i] = model.CategoryRule{Name: rule.Name, Keywords: keywords}
	}

	return &Categorizer{misc: cfg.Misc, rules: rules}, nil
}

// NewFromFile loads a configuration file and builds a categorizer.
func NewFromFile(path string) (*Categorizer, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Categorize returns the best matching category name, or the fallback when
// nothing matches. A keyword listed twice in one category counts twice.
//
// TODO: confirm with the library admins whether duplicate keywords should
// count once; existing category files depend on the current behavior.
func (c *Categorizer) Categorize(text string) string {
	best, bestHits := c.misc, 0
	for _, s := range c.Scores(text) {
		// Strictly greater keeps the earliest rule on ties.
		if s.Hits > bestHits {
			best, bestHits = s.Category, s.Hits
		}
	}
	return best
}

// Scores returns the keyword hit count of every category in config order.
func (c *Categorizer) Scores(text string) []Score {
	lower := strings.ToLower(text)
	scores := make([]Score, len(c.rules))
	for i, rule := range c.rules {
		scores[i].Category = rule.Name
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				scores[i].Hits++
			}
		}
	}
	return scores
}

// Score is the hit count of one category.
type Score struct {
	Category string
	Hits     int
}

// Fallback returns the miscellaneous category name.
func (c *Categorizer) Fallback() string {
	return c.misc
}

// Names returns all category names in config order, fallback last.
func (c *Categorizer) Names() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, rule := range c.rules {
		names = append(names, rule.Name)
	}
	return append(names, c.misc)
}
