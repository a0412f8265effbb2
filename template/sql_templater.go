package template

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// ExecuteSqlTemplate reads a SQL template file and renders it with params.
func ExecuteSqlTemplate(templatePath string, params map[string]any) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template file %s: %w", templatePath, err)
	}

	return RenderSqlTemplate(string(content), params)
}

// RenderSqlTemplate renders an in-memory SQL template with params.
func RenderSqlTemplate(queryTemplate string, params map[string]any) (string, error) {
	tmpl, err := template.New("sql").Parse(queryTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse query template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to execute query template: %w", err)
	}

	return buf.String(), nil
}
