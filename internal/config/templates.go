package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MessageTemplate is one entry of the template catalog
type MessageTemplate struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// TemplateCatalog maps a templateId to its template
type TemplateCatalog map[string]MessageTemplate

type catalogFile struct {
	Templates TemplateCatalog `yaml:"templates"`
}

// LoadTemplates reads a YAML catalog of the form
//
//	templates:
//	  reminder-email:
//	    subject: "Reminder: {event_name}"
//	    body: "Hi {guest_name} ..."
//
// An empty path yields an empty catalog.
func LoadTemplates(path string) (TemplateCatalog, error) {
	if path == "" {
		return TemplateCatalog{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes a YAML template catalog
func ParseTemplates(data []byte) (TemplateCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	if file.Templates == nil {
		return TemplateCatalog{}, nil
	}
	for id, tpl := range file.Templates {
		if tpl.Body == "" {
			return nil, fmt.Errorf("template %q has an empty body", id)
		}
	}
	return file.Templates, nil
}
