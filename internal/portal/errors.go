package portal

import "github.com/cockroachdb/errors"

// Failure taxonomy for a run. The runner distinguishes "found a good slot but
// could not commit" from "a required control was missing" when reporting.
var (
	// ErrNoElement is returned by Browser.Find when no element matches. Step
	// code decides whether that is fatal (ErrControlNotFound) or a fallback.
	ErrNoElement = errors.New("no element matches selector")

	// ErrControlNotFound means a required UI control could not be located by
	// any of its selector strategies. Fatal for the run.
	ErrControlNotFound = errors.New("required control not found")

	// ErrConfirmationFailed means a slot was chosen but the commit click
	// sequence did not complete. Fatal, and not the same as "no match".
	ErrConfirmationFailed = errors.New("confirmation failed")

	// ErrSession means the automation session itself could not be opened or
	// crashed mid-run.
	ErrSession = errors.New("browser session error")
)

func controlNotFound(what string, cause error) error {
	return errors.Mark(errors.Wrapf(cause, "locate %s", what), ErrControlNotFound)
}
