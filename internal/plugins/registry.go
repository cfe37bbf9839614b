package plugins

import (
	"fmt"
	"strings"

	"target-csv/internal/config"
	"target-csv/internal/model"
	"target-csv/internal/stages"
)

// Transform reorders or rewrites a batch in place before it is written.
type Transform func(records []model.Record) error

var transformRegistry = map[string]func(config.Config) Transform{}

// DefaultTransforms run on every batch when no explicit list is given.
var DefaultTransforms = []string{"sort_by_property"}

// RegisterTransform registers a transform factory by name.
func RegisterTransform(name string, builder func(config.Config) Transform) {
	transformRegistry[strings.ToLower(name)] = builder
}

// BuildTransforms constructs the named transforms, or DefaultTransforms when
// names is empty. Factories may return nil to opt out for this config.
func BuildTransforms(cfg config.Config, names ...string) ([]Transform, error) {
	if len(names) == 0 {
		names = DefaultTransforms
	}
	var result []Transform
	for _, name := range names {
		builder, ok := transformRegistry[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown transform %q", name)
		}
		if t := builder(cfg); t != nil {
			result = append(result, t)
		}
	}
	return result, nil
}

func init() {
	// Built-in stable sort using SortStage.
	RegisterTransform("sort_by_property", func(cfg config.Config) Transform {
		s := stages.NewSortStage(cfg.RecordSortPropertyName)
		if s == nil {
			return nil
		}
		return s.Apply
	})
}
