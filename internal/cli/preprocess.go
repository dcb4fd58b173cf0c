package cli

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/joho/godotenv"
)

// TemplateContext is the data available to {{ }} placeholders in config and
// body files.
type TemplateContext struct {
	ENV map[string]string
}

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

var missingKeyRegex = regexp.MustCompile(`map has no entry for key "(.*?)"`)

// PreprocessConfig replaces {{ .ENV.VAR }} placeholders with values from the
// process environment or, failing that, the .env file. A placeholder with
// no value is an error.
func PreprocessConfig(input []byte) ([]byte, error) {
	if !bytes.Contains(input, []byte("{{")) {
		return input, nil
	}

	env, err := templateEnv(DotEnvFile)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("config").Option("missingkey=error").Parse(string(input))
	if err != nil {
		return nil, fmt.Errorf("template error: %w", err)
	}

	var output bytes.Buffer
	if err := tmpl.Execute(&output, TemplateContext{ENV: env}); err != nil {
		if m := missingKeyRegex.FindStringSubmatch(err.Error()); len(m) == 2 {
			return nil, fmt.Errorf("missing environment variable: %s (set it in your shell or %s file)", m[1], DotEnvFile)
		}
		return nil, fmt.Errorf("template error: %w", err)
	}
	return output.Bytes(), nil
}

// templateEnv merges the .env file (if any) under the process environment.
// The process environment is not modified.
func templateEnv(dotenv string) (map[string]string, error) {
	env := map[string]string{}
	if _, err := os.Stat(dotenv); err == nil {
		fileEnv, err := godotenv.Read(dotenv)
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", dotenv, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env, nil
}
