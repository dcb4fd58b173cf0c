package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"

	"github.com/zelaser/hoapi-go/pkg/hoapi"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// Profile is the hoctl configuration file: the client credentials plus the
// transport settings applied when building a client.
type Profile struct {
	// Version of the configuration file format
	Version string `yaml:"version" toml:"version" mapstructure:"version"`

	hoapi.Config `yaml:",inline" mapstructure:",squash"`

	// Timeout bounds each request, e.g. "30s". Zero keeps the SDK default.
	Timeout time.Duration `yaml:"timeout,omitempty" toml:"timeout" mapstructure:"timeout"`
	// Envelope enables the encrypted request/response envelope
	Envelope bool `yaml:"envelope,omitempty" toml:"envelope" mapstructure:"envelope"`
	// CanonicalJSON serializes request bodies in canonical form before signing
	CanonicalJSON bool `yaml:"canonical_json,omitempty" toml:"canonical_json" mapstructure:"canonical_json"`
}

var profile *Profile

// GetProfile returns the loaded profile, or nil before LoadProfile succeeds.
func GetProfile() *Profile {
	return profile
}

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/hoctl on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "hoctl", DefaultConfigFile), nil
}

// LoadProfile reads, expands and parses a profile file, applies the
// key=value overrides and makes it the current profile. Files ending in
// .toml are parsed as TOML, everything else as YAML.
func LoadProfile(file string, overrides []string) (*Profile, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	expanded, err := PreprocessConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("unable to expand config file: %w", err)
	}

	p := &Profile{}
	if strings.EqualFold(filepath.Ext(file), ".toml") {
		_, err = toml.Decode(string(expanded), p)
	} else {
		err = yaml.Unmarshal(expanded, p)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	if err := ApplyOverrides(p, overrides); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	profile = p
	log.Debug().Str("config_file", file).Str("base_url", p.BaseURL).Msg("profile loaded")
	return p, nil
}

// ApplyOverrides decodes "key=value" pairs onto p. Keys are the config file
// keys; unknown keys are rejected.
func ApplyOverrides(p *Profile, overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}
	values := make(map[string]any, len(overrides))
	for _, kv := range overrides {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("invalid override %q, expected key=value", kv)
		}
		values[k] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("unable to apply overrides: %w", err)
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("unable to apply overrides: %w", err)
	}
	return nil
}

// Validate checks the format version and the client configuration.
func (p *Profile) Validate() error {
	if p.Version == "" {
		p.Version = ConfigFormatVersion
	}
	if !IsConfigVersionCompatible(p.Version) {
		return fmt.Errorf("unsupported config file format version: %s", p.Version)
	}
	if p.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return p.Config.Validate()
}

// ClientOptions translates the transport settings into SDK options.
func (p *Profile) ClientOptions() []hoapi.Option {
	opts := []hoapi.Option{
		hoapi.WithLogger(log.Logger),
		hoapi.WithUserAgent("hoctl/" + getCLIVersion() + " " + hoapi.DefaultUserAgent),
	}
	if p.Timeout > 0 {
		opts = append(opts, hoapi.WithTimeout(p.Timeout))
	}
	if p.Envelope {
		opts = append(opts, hoapi.WithEnvelope())
	}
	if p.CanonicalJSON {
		opts = append(opts, hoapi.WithCanonicalJSON())
	}
	return opts
}

// NewClient builds an SDK client from the profile.
func (p *Profile) NewClient() (*hoapi.Client, error) {
	return hoapi.New(p.Config, p.ClientOptions()...)
}

// Masked returns a copy safe to print: secret and iv are redacted.
func (p Profile) Masked() Profile {
	p.AppSecret = mask(p.AppSecret)
	p.IV = mask(p.IV)
	return p
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// WriteProfile writes p to file as YAML with owner-only permissions.
func (p *Profile) WriteProfile(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), 0700)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// newConfigCmd creates the config command and its subcommands
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage hoctl configuration",
		Long:  `Manage the profile holding the API credentials and connection settings.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		p     Profile
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a new configuration file",
		Long: `Write a new configuration file. Values may be environment placeholders
that are expanded when the file is loaded, which keeps secrets out of the file.

Example:
  hoctl config init --app-id my-app --app-secret '{{ .ENV.HO_APP_SECRET }}' \
    --iv '{{ .ENV.HO_IV }}' --base-url https://server.example.com --content /server/common/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return ErrConfigInvalid.Msg(fmt.Sprintf("%s already exists, use --force to overwrite", path))
			}
			p.Version = ConfigFormatVersion
			if err := p.WriteProfile(path); err != nil {
				return ErrConfigInvalid.Err(err)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"config_file": path})
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "✓ Config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.AppID, "app-id", "", "Application id")
	cmd.Flags().StringVar(&p.AppSecret, "app-secret", "", "Application secret")
	cmd.Flags().StringVar(&p.IV, "iv", "", "Initialization vector")
	cmd.Flags().StringVar(&p.BaseURL, "base-url", "", "Service base URL, e.g. https://server.example.com")
	cmd.Flags().StringVar(&p.Content, "content", "", "Path prefix shared by all requests")
	cmd.Flags().DurationVar(&p.Timeout, "timeout", 0, "Request timeout")
	cmd.Flags().BoolVar(&p.Envelope, "envelope", false, "Use the encrypted envelope protocol")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the loaded configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			p, err := LoadProfile(path, overrides)
			if err != nil {
				return ErrConfigInvalid.Err(err)
			}
			masked := p.Masked()
			out, err := yaml.Marshal(&masked)
			if err != nil {
				return err
			}
			if jsonOutput {
				js, err := k8syaml.YAMLToJSON(out)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), json.RawMessage(js))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, out)
			return nil
		},
	}
}

func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	path, err := GetDefaultConfigPath()
	if err != nil {
		return "", ErrConfigInvalid.Err(err)
	}
	return path, nil
}
