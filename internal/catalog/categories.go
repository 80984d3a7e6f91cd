package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yangxb919/prspares-website/pkg/slug"
)

// Category is one sidebar filter entry.
type Category struct {
	Token string `yaml:"token" json:"token"`
	Label string `yaml:"label" json:"label"`
}

//go:embed categories.yaml
var categoriesYAML []byte

// Categories is the fixed category list, in display order.
var Categories = mustParseCategories(categoriesYAML)

func mustParseCategories(data []byte) []Category {
	cats, err := ParseCategories(data)
	if err != nil {
		panic(err)
	}
	return cats
}

// ParseCategories decodes a category list. Tokens are normalized to slugs and
// derived from the label when missing; duplicates are rejected.
func ParseCategories(data []byte) ([]Category, error) {
	var doc struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	seen := make(map[string]bool, len(doc.Categories))
	out := make([]Category, 0, len(doc.Categories))
	for i, c := range doc.Categories {
		if c.Label == "" {
			return nil, fmt.Errorf("parse categories: entry %d has no label", i)
		}
		src := c.Token
		if src == "" {
			src = c.Label
		}
		c.Token = slug.Generate(src)
		if c.Token == "" {
			return nil, fmt.Errorf("parse categories: %q yields an empty token", c.Label)
		}
		if seen[c.Token] {
			return nil, fmt.Errorf("parse categories: duplicate token %q", c.Token)
		}
		seen[c.Token] = true
		out = append(out, c)
	}
	return out, nil
}

// LookupCategory returns the category for token, matched after slug
// normalization.
func LookupCategory(token string) (Category, bool) {
	token = slug.Generate(token)
	for _, c := range Categories {
		if c.Token == token {
			return c, true
		}
	}
	return Category{}, false
}
