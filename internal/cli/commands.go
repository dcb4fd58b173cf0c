package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zelaser/hoapi-go/internal/common/apperrors"
	"github.com/zelaser/hoapi-go/internal/common/logtrace"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
	logLevel   string
	overrides  []string
)

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// annotationNeedsProfile marks commands that load the profile before running.
const annotationNeedsProfile = "hoctl/needs-profile"

// newRootCmd builds the command tree. Flags are bound to the package globals,
// so each call resets them to their defaults.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hoctl [command] [flags]",
		Short: "hoctl - send signed requests to HO APIs",
		Long: `hoctl is a command line client for HO signed HTTP APIs.
It reads the application credentials from a profile and sends one signed
request per invocation, printing the response body.

Examples:
  # Write a profile
  hoctl config init --app-id my-app --app-secret '{{ .ENV.HO_APP_SECRET }}' \
    --iv '{{ .ENV.HO_IV }}' --base-url https://server.example.com --content /api

  # Fetch a resource
  hoctl send GET /users/42

  # Create a resource from a YAML file
  hoctl send POST /users -f user.yaml`,
		PersistentPreRunE: preRunHandlePersistents,
		SilenceErrors:     true, // Prevent Cobra from printing the error
		SilenceUsage:      true, // Prevent Cobra from printing usage on error
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	cmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringArrayVar(&overrides, "set", nil, "Override a profile value, e.g. --set timeout=5s")

	cmd.AddCommand(newVersionCmd(), newConfigCmd(), newSendCmd())
	return cmd
}

// Execute runs hoctl and exits with the code carried by the returned error.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stdout, os.Stderr, err)
		os.Exit(apperrors.ExitCodeOf(err))
	}
}

func reportError(stdout, stderr io.Writer, err error) {
	msg := err.Error()
	if ae, ok := err.(apperrors.Error); ok {
		msg = ae.ErrorAll()
	}
	if jsonOutput {
		printJSON(stdout, map[string]any{
			"error":     msg,
			"exit_code": apperrors.ExitCodeOf(err),
		})
		return
	}
	errorLabel.Fprintf(stderr, "Error: %s\n", msg)
}

// preRunHandlePersistents sets up logging and loads the profile for the
// commands that need one.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	logtrace.InitLogger(logLevel, !jsonOutput)

	needsProfile := false
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationNeedsProfile]; ok {
			needsProfile = true
			break
		}
	}
	if !needsProfile {
		return nil
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if _, err := LoadProfile(path, overrides); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrConfigInvalid.Msg(fmt.Sprintf("config file %s not found, configure hoctl with \"hoctl config init\" first", path))
		}
		return ErrConfigInvalid.Err(err)
	}
	return nil
}

// printJSON writes data to w as indented JSON
func printJSON(w io.Writer, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}
