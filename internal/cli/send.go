package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	k8syaml "sigs.k8s.io/yaml"

	"github.com/zelaser/hoapi-go/internal/common/logtrace"
	"github.com/zelaser/hoapi-go/pkg/hoapi"
)

type sendOptions struct {
	data       string
	file       string
	schema     string
	retries    int
	retryDelay time.Duration
}

func newSendCmd() *cobra.Command {
	var o sendOptions
	cmd := &cobra.Command{
		Use:   "send METHOD PATH",
		Short: "Send a signed request and print the response body",
		Long: `Send one signed request to the configured service. PATH is relative to the
profile's content prefix and may include a query string.

The request body is given inline with --data or read from a JSON or YAML file
with --file ("-" reads standard input). Files may use {{ .ENV.VAR }}
placeholders.

Examples:
  hoctl send GET '/users?page=2'
  hoctl send POST /users -d '{"name":"ahri"}'
  hoctl send PUT /users/42 -f user.yaml --schema user.schema.json
  hoctl send GET /health --retries 3 --retry-delay 500ms`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{annotationNeedsProfile: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, o, args[0], args[1])
		},
	}
	cmd.Flags().StringVarP(&o.data, "data", "d", "", "Inline JSON request body")
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "JSON or YAML file holding the request body")
	cmd.Flags().StringVar(&o.schema, "schema", "", "JSON schema file the request body must satisfy")
	cmd.Flags().IntVar(&o.retries, "retries", 0, "Retries on transport errors and 429/5xx responses")
	cmd.Flags().DurationVar(&o.retryDelay, "retry-delay", time.Second, "Initial delay between retries, doubled after each attempt")
	return cmd
}

func runSend(cmd *cobra.Command, o sendOptions, method, path string) error {
	if o.retries < 0 {
		return ErrRequestInvalid.Msg("--retries must not be negative")
	}
	payload, err := readBody(cmd.InOrStdin(), o)
	if err != nil {
		return ErrRequestInvalid.Err(err)
	}
	if o.schema != "" {
		if payload == nil {
			return ErrRequestInvalid.Msg("--schema requires a request body")
		}
		if err := validateBody(o.schema, payload); err != nil {
			return ErrRequestInvalid.Err(err)
		}
	}

	p := GetProfile()
	if p == nil {
		return ErrConfigInvalid.Msg("no profile loaded")
	}
	client, err := p.NewClient()
	if err != nil {
		return classify(err)
	}

	var body any
	if payload != nil {
		body = json.RawMessage(payload)
	}

	requestID := logtrace.NewRequestID()
	ctx := logtrace.WithRequestID(cmd.Context(), requestID)

	var (
		resp    string
		lastErr error
	)
	err = retry.Do(
		func() error {
			var err error
			resp, err = client.Send(ctx, method, path, body)
			lastErr = err
			if err != nil && !retryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.retries)+1),
		retry.Delay(o.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("request_id", requestID).Msg("retrying request")
		}),
	)
	if err != nil {
		// Cancelled while waiting between attempts: report the abort together
		// with the last server or transport failure.
		if isContextErr(err) && lastErr != nil && !isContextErr(lastErr) {
			return ErrTransport.Err(err, lastErr)
		}
		return classify(err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		var response any = resp
		if gjson.Valid(resp) {
			response = json.RawMessage(resp)
		}
		return printJSON(out, map[string]any{
			"status":     "ok",
			"request_id": requestID,
			"response":   response,
		})
	}
	fmt.Fprint(out, resp)
	if resp != "" && !strings.HasSuffix(resp, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	var te *hoapi.TransportError
	if errors.As(err, &te) {
		return !errors.Is(err, context.Canceled)
	}
	var he *hoapi.HTTPError
	return errors.As(err, &he) && he.Temporary()
}

// readBody returns the request body as JSON, or nil when none was given.
func readBody(stdin io.Reader, o sendOptions) ([]byte, error) {
	switch {
	case o.data != "" && o.file != "":
		return nil, errors.New("--data and --file are mutually exclusive")
	case o.data != "":
		if !gjson.Valid(o.data) {
			return nil, errors.New("--data is not valid JSON")
		}
		return []byte(o.data), nil
	case o.file == "":
		return nil, nil
	}

	var (
		raw []byte
		err error
	)
	if o.file == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(o.file)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read body file: %w", err)
	}
	raw, err = PreprocessConfig(raw)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(o.file), ".json") || gjson.ValidBytes(raw) {
		if !gjson.ValidBytes(raw) {
			return nil, fmt.Errorf("%s is not valid JSON", o.file)
		}
		return raw, nil
	}
	js, err := k8syaml.YAMLToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("unable to parse body file: %w", err)
	}
	return js, nil
}

// validateBody checks body against the JSON schema in schemaFile.
func validateBody(schemaFile string, body []byte) error {
	schema, err := os.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("unable to read schema: %w", err)
	}
	if !gjson.ValidBytes(schema) {
		return fmt.Errorf("invalid JSON schema")
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("inline://schema", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("inline://schema")
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("request body does not match schema: %w", err)
	}
	return nil
}
