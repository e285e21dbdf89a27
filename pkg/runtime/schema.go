package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

// rawFormField mirrors types.FormField but accepts the loose options
// format used by schema files: a list of plain strings or of
// single-entry label-to-value maps.
type rawFormField struct {
	types.FormField `yaml:",inline"`
	Options         []any `yaml:"options"`
}

// LoadFormFields reads the declarative settings schema for a plugin from
// <dir>/<plugin>/form_fields.yaml. A missing file yields empty fields,
// not an error; select-field options are flattened to their values.
func LoadFormFields(dir, plugin string) ([]types.FormField, error) {
	path := filepath.Join(dir, plugin, "form_fields.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading form fields for %q: %w", plugin, err)
	}

	var raw []rawFormField
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing form fields for %q: %w", plugin, err)
	}

	fields := make([]types.FormField, 0, len(raw))

	for _, rf := range raw {
		field := rf.FormField
		field.Options = flattenOptions(rf.Options)
		fields = append(fields, field)
	}

	return fields, nil
}

func flattenOptions(opts []any) []string {
	if len(opts) == 0 {
		return nil
	}

	out := make([]string, 0, len(opts))

	for _, opt := range opts {
		switch v := opt.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			// {"US Dollar (USD)": "USD"} keeps just the value.
			for _, val := range v {
				out = append(out, fmt.Sprintf("%v", val))
				break
			}
		}
	}

	return out
}
