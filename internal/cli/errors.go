package cli

import (
	"context"
	"errors"

	"github.com/zelaser/hoapi-go/internal/common/apperrors"
	"github.com/zelaser/hoapi-go/pkg/hoapi"
)

// Process exit codes reported by hoctl.
const (
	ExitGeneric   = 1
	ExitConfig    = 2
	ExitTransport = 3
	ExitStatus    = 4
	ExitEnvelope  = 5
)

var (
	ErrConfigInvalid  = apperrors.New("invalid configuration").SetExitCode(ExitConfig)
	ErrRequestInvalid = apperrors.New("invalid request").SetExitCode(ExitGeneric)
	ErrTransport      = apperrors.New("request failed").SetExitCode(ExitTransport)
	ErrStatus         = apperrors.New("server returned an error").SetExitCode(ExitStatus)
	ErrEnvelope       = apperrors.New("unable to read response envelope").SetExitCode(ExitEnvelope)
)

// classify maps an SDK error onto the CLI error carrying its exit code.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hoapi.ErrConfig):
		return ErrConfigInvalid.Err(err)
	case errors.Is(err, hoapi.ErrTransport), isContextErr(err):
		return ErrTransport.Err(err)
	case errors.Is(err, hoapi.ErrHTTP):
		return ErrStatus.Err(err)
	case errors.Is(err, hoapi.ErrEnvelope):
		return ErrEnvelope.Err(err)
	default:
		return ErrRequestInvalid.Err(err)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
