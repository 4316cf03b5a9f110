package doctools

import (
	"bytes"
	"text/template"

	"github.com/pkg/errors"    // Error wrapping.
	"github.com/tidwall/gjson" // Dynamic JSON parsing.
)

// Render executes a text/template against params. A reference to a
// missing param is an error rather than a silent "<no value>".
func Render(tmpl string, params map[string]interface{}) (string, error) {
	t, err := template.New("body").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "error parsing template")
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", errors.Wrap(err, "error rendering template")
	}
	return buf.String(), nil
}

// RenderJSON is Render plus a check that the output is well-formed
// JSON, which is what a query body must be.
func RenderJSON(tmpl string, params map[string]interface{}) (string, error) {
	out, err := Render(tmpl, params)
	if err != nil {
		return "", err
	}
	if !gjson.Valid(out) {
		return "", errors.New("rendered body is not valid json")
	}
	return out, nil
}

// renderBody renders body with params when params are given, and
// passes it through untouched otherwise.
func renderBody(body string, params map[string]interface{}) (string, error) {
	if body == "" || params == nil {
		return body, nil
	}
	return RenderJSON(body, params)
}
