// internal/design/catalog.go
package design

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Priorities a reference source can carry.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Reference is one external design source to benchmark against.
type Reference struct {
	Name     string   `json:"name" yaml:"name"`
	URL      string   `json:"url" yaml:"url"`
	Category string   `json:"category" yaml:"category"`
	Tags     []string `json:"tags,omitempty" yaml:"tags"`
	Priority string   `json:"priority" yaml:"priority"`
}

// Slug is the artifact-safe form of the reference name.
func (r Reference) Slug() string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(r.Name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var builtinCatalog = []Reference{
	{Name: "Stripe", URL: "https://stripe.com", Category: "saas", Tags: []string{"gradient", "marketing"}, Priority: PriorityHigh},
	{Name: "Linear", URL: "https://linear.app", Category: "developer-tools", Tags: []string{"dark", "product"}, Priority: PriorityHigh},
	{Name: "Vercel", URL: "https://vercel.com", Category: "developer-tools", Tags: []string{"minimal", "marketing"}, Priority: PriorityHigh},
	{Name: "Notion", URL: "https://www.notion.so", Category: "productivity", Tags: []string{"illustration", "minimal"}, Priority: PriorityMedium},
	{Name: "GitHub", URL: "https://github.com", Category: "developer-tools", Tags: []string{"product", "dense"}, Priority: PriorityMedium},
	{Name: "Tailwind CSS", URL: "https://tailwindcss.com", Category: "design-system", Tags: []string{"documentation"}, Priority: PriorityMedium},
	{Name: "Material Design", URL: "https://m3.material.io", Category: "design-system", Tags: []string{"documentation", "components"}, Priority: PriorityLow},
	{Name: "Apple", URL: "https://www.apple.com", Category: "e-commerce", Tags: []string{"imagery", "marketing"}, Priority: PriorityLow},
}

// BuiltinCatalog returns a copy of the default reference catalog.
func BuiltinCatalog() []Reference {
	out := make([]Reference, len(builtinCatalog))
	copy(out, builtinCatalog)
	return out
}

type catalogFile struct {
	References []Reference `yaml:"references"`
}

// LoadCatalog reads a YAML catalog of the form `references: [...]`. An empty
// path yields the built-in catalog.
func LoadCatalog(fs afero.Fs, path string) ([]Reference, error) {
	if path == "" {
		return BuiltinCatalog(), nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse reference catalog %s: %w", path, err)
	}
	for i, r := range f.References {
		if r.Name == "" || r.URL == "" {
			return nil, fmt.Errorf("reference catalog %s: entry %d needs a name and url", path, i)
		}
		if r.Priority == "" {
			f.References[i].Priority = PriorityMedium
		}
		f.References[i].Priority = strings.ToLower(f.References[i].Priority)
	}
	return f.References, nil
}

// Select keeps references whose priority is listed, preserving catalog order.
func Select(refs []Reference, priorities []string) []Reference {
	want := make(map[string]bool, len(priorities))
	for _, p := range priorities {
		want[strings.ToLower(p)] = true
	}
	var out []Reference
	for _, r := range refs {
		if want[r.Priority] {
			out = append(out, r)
		}
	}
	return out
}
