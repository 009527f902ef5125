package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"taskflow/internal/model"
)

// Payloads are checked against JSON schemas before they leave the process, so
// the data service only ever sees closed, well-typed rows.

var (
	taskInputSchema     = mustSchema("task_input.json", taskSchema(true))
	taskPatchSchema     = mustSchema("task_patch.json", taskSchema(false))
	categorySchema      = mustSchema("category.json", categoryDoc(true))
	categoryPatchSchema = mustSchema("category_patch.json", categoryDoc(false))
	settingsPatchSchema = mustSchema("settings_patch.json", settingsDoc())
	profilePatchSchema  = mustSchema("profile_patch.json", profileDoc())
)

func taskSchema(create bool) map[string]interface{} {
	priorities := make([]string, 0, len(model.Priorities))
	for _, p := range model.Priorities {
		priorities = append(priorities, string(p))
	}
	statuses := make([]string, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		statuses = append(statuses, string(s))
	}
	doc := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title":       map[string]interface{}{"type": "string", "minLength": 1, "pattern": `\S`},
			"description": map[string]interface{}{"type": "string"},
			"due_date":    map[string]interface{}{"type": []string{"string", "null"}, "format": "date-time"},
			"priority":    map[string]interface{}{"enum": priorities},
			"category":    map[string]interface{}{"type": "string"},
			"important":   map[string]interface{}{"type": "boolean"},
			"status":      map[string]interface{}{"enum": statuses},
		},
	}
	if create {
		doc["required"] = []string{"title", "priority", "status"}
	} else {
		doc["minProperties"] = 1
	}
	return doc
}

func categoryDoc(create bool) map[string]interface{} {
	doc := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":  map[string]interface{}{"type": "string", "minLength": 1, "pattern": `\S`},
			"color": map[string]interface{}{"type": "string"},
		},
	}
	if create {
		doc["required"] = []string{"name"}
	} else {
		doc["minProperties"] = 1
	}
	return doc
}

func settingsDoc() map[string]interface{} {
	return map[string]interface{}{
		"type":          "object",
		"minProperties": 1,
		"properties": map[string]interface{}{
			"theme":        map[string]interface{}{"enum": []string{string(model.ThemeLight), string(model.ThemeDark)}},
			"default_view": map[string]interface{}{"enum": []string{string(model.ViewKanban), string(model.ViewCalendar)}},
			"color_theme":  map[string]interface{}{"enum": model.ColorThemes},
		},
	}
}

func profileDoc() map[string]interface{} {
	text := map[string]interface{}{"type": "string"}
	return map[string]interface{}{
		"type":                 "object",
		"minProperties":        1,
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"display_name": text,
			"email":        text,
			"phone":        text,
			"profession":   text,
			"avatar_url":   text,
		},
	}
}

const schemaBase = "https://taskflow.local/schemas/"

func mustSchema(name string, doc map[string]interface{}) *jsonschema.Schema {
	url := schemaBase + name
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("marshal schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(url)
}

// validate round-trips v through JSON and checks it against schema.
func validate(schema *jsonschema.Schema, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := schema.Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" {
		return fmt.Errorf("%w: %s", ErrInvalidInput, leaf.Message)
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, leaf.Message)
}

// ValidateTaskInput checks a create payload after defaults have been applied.
func ValidateTaskInput(in model.TaskInput) error {
	return validate(taskInputSchema, in)
}

func validateTaskPatch(p model.TaskPatch) error {
	doc := make(map[string]interface{})
	for k, v := range p.Columns() {
		if k == "updated_at" {
			continue
		}
		doc[k] = v
	}
	return validate(taskPatchSchema, doc)
}

func validateCategory(name, color string) error {
	return validate(categorySchema, map[string]string{"name": name, "color": color})
}

func validateCategoryPatch(p model.CategoryPatch) error {
	return validate(categoryPatchSchema, p.Columns())
}

func validateProfilePatch(p model.ProfilePatch) error {
	return validate(profilePatchSchema, p.Columns())
}

func validateSettingsPatch(p model.SettingsPatch) error {
	return validate(settingsPatchSchema, p.Columns())
}
