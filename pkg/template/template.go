// Package template resolves placeholder expressions against request, route and task context.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"rand": func(max int) int {
		if max <= 0 {
			return 0
		}
		num := make([]byte, 1)
		_, err := rand.Read(num)
		if err != nil {
			return 0
		}

		return int(num[0]) % max
	},
}

func execute(templateStr string, data any) (string, error) {
	tmpl, err := template.New("placeholder").Funcs(funcs).Option("missingkey=zero").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// Render executes templateStr and decodes the output as JSON, a number or a boolean when it
// reads as one; otherwise the trimmed string is returned.
func Render(templateStr string, data any) (any, error) {
	out, err := execute(templateStr, data)
	if err != nil {
		return nil, err
	}

	result := strings.TrimSpace(out)
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}
