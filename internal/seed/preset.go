package seed

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"

	"atelier/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// DefaultPreset is the name of the embedded preset used when none is given.
const DefaultPreset = "default"

// CategorySpec is one category a preset guarantees exists.
type CategorySpec struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// Distribution weights post types within a category.
type Distribution struct {
	Text    int `yaml:"text"`
	Image   int `yaml:"image"`
	Link    int `yaml:"link"`
	Artwork int `yaml:"artwork"`
}

func (d Distribution) total() int {
	return d.Text + d.Image + d.Link + d.Artwork
}

// Preset describes a demo data set.
type Preset struct {
	Users      int            `yaml:"users"`
	Categories []CategorySpec `yaml:"categories"`
	Posts      struct {
		PerCategory  int          `yaml:"perCategory"`
		MaxDays      int          `yaml:"maxDays"`
		Distribution Distribution `yaml:"distribution"`
	} `yaml:"posts"`
	Artwork struct {
		PaidRatio     float64 `yaml:"paidRatio"`
		ApprovedRatio float64 `yaml:"approvedRatio"`
	} `yaml:"artwork"`
	Engagement struct {
		VotesPerPost    int     `yaml:"votesPerPost"`
		CommentsPerPost int     `yaml:"commentsPerPost"`
		ReplyRatio      float64 `yaml:"replyRatio"`
	} `yaml:"engagement"`
}

// LoadPreset reads a preset from a YAML file, or the embedded default when path is empty.
func LoadPreset(path string) (*Preset, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = presetFS.ReadFile("presets/" + DefaultPreset + ".yaml")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(raw)
}

// ParsePreset decodes and validates a YAML preset. Unknown keys are rejected.
func ParsePreset(raw []byte) (*Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the preset for values the seeder cannot honor.
func (p *Preset) Validate() error {
	if p.Users < 1 {
		return errors.New("preset needs at least one user")
	}
	if len(p.Categories) == 0 {
		return errors.New("preset needs at least one category")
	}
	seen := make(map[string]struct{}, len(p.Categories))
	for _, c := range p.Categories {
		if err := validation.ValidateCategorySlug(c.Slug); err != nil {
			return fmt.Errorf("category %q: %w", c.Slug, err)
		}
		if _, dup := seen[c.Slug]; dup {
			return fmt.Errorf("category %q listed twice", c.Slug)
		}
		seen[c.Slug] = struct{}{}
	}
	if p.Posts.PerCategory < 0 || p.Engagement.VotesPerPost < 0 || p.Engagement.CommentsPerPost < 0 {
		return errors.New("counts cannot be negative")
	}
	if p.Posts.PerCategory > 0 && p.Posts.Distribution.total() <= 0 {
		return errors.New("post distribution must have a positive weight")
	}
	for name, r := range map[string]float64{
		"artwork.paidRatio":     p.Artwork.PaidRatio,
		"artwork.approvedRatio": p.Artwork.ApprovedRatio,
		"engagement.replyRatio": p.Engagement.ReplyRatio,
	} {
		if r < 0 || r > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

// computeCounts splits total posts across types by weight. Remainders go to
// types in order of their fractional share, so the counts always sum to total.
func computeCounts(total int, d Distribution) (text, image, link, artwork int) {
	weights := []int{d.Text, d.Image, d.Link, d.Artwork}
	sum := d.total()
	if total <= 0 || sum <= 0 {
		return 0, 0, 0, 0
	}

	counts := make([]int, len(weights))
	assigned := 0
	for i, w := range weights {
		counts[i] = total * w / sum
		assigned += counts[i]
	}
	for assigned < total {
		best, bestRem := 0, -1
		for i, w := range weights {
			if rem := (total * w) % sum; w > 0 && rem > bestRem {
				best, bestRem = i, rem
			}
		}
		counts[best]++
		assigned++
		// Each type takes at most one remainder.
		weights[best] = 0
	}
	return counts[0], counts[1], counts[2], counts[3]
}
