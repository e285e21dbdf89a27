package runtime

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const testSchema = `- keyname: station_id
  name: Station ID
  field_type: string
- keyname: units
  name: Units
  field_type: select
  optional: true
  options:
    - Imperial: imperial
    - metric
`

func writeTestSchema(t *testing.T, plugin, content string) string {
	t.Helper()

	dir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(dir, plugin), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, plugin, "form_fields.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return dir
}

func TestLoadFormFields(t *testing.T) {
	dir := writeTestSchema(t, "tempest", testSchema)

	fields, err := LoadFormFields(dir, "tempest")
	if err != nil {
		t.Fatalf("LoadFormFields() error = %v", err)
	}

	if len(fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(fields))
	}

	if fields[0].Keyname != "station_id" || fields[0].FieldType != "string" {
		t.Errorf("fields[0] = %+v, want station_id string field", fields[0])
	}

	if !fields[1].Optional {
		t.Error("fields[1].Optional = false, want true")
	}

	want := []string{"imperial", "metric"}
	if !reflect.DeepEqual(fields[1].Options, want) {
		t.Errorf("fields[1].Options = %v, want %v", fields[1].Options, want)
	}
}

func TestLoadFormFieldsMissingFile(t *testing.T) {
	fields, err := LoadFormFields(t.TempDir(), "unknown")
	if err != nil {
		t.Fatalf("LoadFormFields() error = %v, want nil for missing file", err)
	}

	if fields != nil {
		t.Errorf("fields = %v, want nil", fields)
	}
}

func TestLoadFormFieldsInvalidYAML(t *testing.T) {
	dir := writeTestSchema(t, "broken", "keyname: [unclosed")

	if _, err := LoadFormFields(dir, "broken"); err == nil {
		t.Error("LoadFormFields() = nil, want parse error")
	}
}
