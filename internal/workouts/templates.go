package workouts

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed templates.toml
var templatesTOML string

type TemplateExercise struct {
	Name     string  `toml:"name" json:"name"`
	Category string  `toml:"category" json:"category"`
	Sets     int     `toml:"sets" json:"sets"`
	Reps     int     `toml:"reps" json:"reps"`
	Weight   float64 `toml:"weight" json:"weight"`
	Rest     int     `toml:"rest" json:"rest"`
	Notes    string  `toml:"notes" json:"notes,omitempty"`
}

// Template is one day of a split, instantiated as a planned workout.
type Template struct {
	ID        string             `toml:"id" json:"id"`
	Split     string             `toml:"split" json:"split"`
	Name      string             `toml:"name" json:"name"`
	Type      string             `toml:"type" json:"type"`
	Exercises []TemplateExercise `toml:"exercise" json:"exercises"`
}

type templateFile struct {
	Templates []Template `toml:"template"`
}

var builtinTemplates = mustParseTemplates(templatesTOML)

// ParseTemplates decodes a TOML document of [[template]] tables.
func ParseTemplates(data string) ([]Template, error) {
	var file templateFile
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode templates: unknown keys %v", undecoded)
	}

	seen := make(map[string]bool, len(file.Templates))
	for i := range file.Templates {
		t := &file.Templates[i]
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("template %d: id and name are required", i+1)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("template %s: duplicate id", t.ID)
		}
		seen[t.ID] = true
		for j := range t.Exercises {
			if t.Exercises[j].Rest <= 0 {
				t.Exercises[j].Rest = DefaultRest
			}
		}
	}
	return file.Templates, nil
}

func mustParseTemplates(data string) []Template {
	templates, err := ParseTemplates(data)
	if err != nil {
		panic(err)
	}
	return templates
}

func findTemplate(templates []Template, id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
