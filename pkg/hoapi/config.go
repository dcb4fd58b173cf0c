package hoapi

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Config holds the credentials and endpoint of the remote API. All fields are
// required.
type Config struct {
	// AppID identifies the calling application. Sent as HO-APP-ID.
	AppID string `yaml:"app_id" toml:"app_id" mapstructure:"app_id" validate:"required"`
	// AppSecret signs every request. In envelope mode it is also the
	// AES-256 key and must be exactly 32 bytes.
	AppSecret string `yaml:"app_secret" toml:"app_secret" mapstructure:"app_secret" validate:"required"`
	// IV is the AES-CBC initialization vector used in envelope mode (16 bytes).
	IV string `yaml:"iv" toml:"iv" mapstructure:"iv" validate:"required"`
	// BaseURL is the scheme and host of the service, e.g. https://api.example.com
	BaseURL string `yaml:"base_url" toml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// Content is the path prefix shared by every request, e.g. /server/common/api
	Content string `yaml:"content" toml:"content" mapstructure:"content" validate:"required"`
}

const (
	envelopeKeySize = 32
	envelopeIVSize  = 16
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that every field is present and that BaseURL is an absolute
// http(s) URL. The returned error, if any, is a *ConfigError.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{Field: fe.Field(), Reason: validationReason(fe.Tag())}
		}
		return &ConfigError{Reason: err.Error()}
	}
	if _, err := parseBaseURL(c.BaseURL); err != nil {
		return err
	}
	return nil
}

// validateEnvelopeKeys checks the key material required by AES-256-CBC.
func (c Config) validateEnvelopeKeys() error {
	if len(c.AppSecret) != envelopeKeySize {
		return &ConfigError{Field: "app_secret", Reason: "must be 32 bytes in envelope mode"}
	}
	if len(c.IV) != envelopeIVSize {
		return &ConfigError{Field: "iv", Reason: "must be 16 bytes in envelope mode"}
	}
	return nil
}

func validationReason(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "url":
		return "is not a valid URL"
	default:
		return "failed " + tag + " validation"
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &ConfigError{Field: "base_url", Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ConfigError{Field: "base_url", Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return nil, &ConfigError{Field: "base_url", Reason: "host is required"}
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, &ConfigError{Field: "base_url", Reason: "must not carry a query or fragment"}
	}
	return u, nil
}
