package scratch

import (
	stderrors "errors"
	"fmt"

	"github.com/jmgilman/go/errors"
)

// Error codes returned by the Manager. They are checked with errors.GetCode
// from github.com/jmgilman/go/errors.
const (
	// CodeInvalidKey indicates a malformed space key.
	CodeInvalidKey errors.ErrorCode = "INVALID_KEY"

	// CodeIOFailure indicates a filesystem operation failed.
	CodeIOFailure errors.ErrorCode = "IO_FAILURE"

	// CodeUnresolvedOwner indicates an access could not be attributed to any
	// consumer manifest. Tracking is skipped; it is never fatal to Get.
	CodeUnresolvedOwner errors.ErrorCode = "UNRESOLVED_OWNER"

	// CodePartialGC indicates one or more deletions failed during a sweep.
	CodePartialGC errors.ErrorCode = "PARTIAL_GC_FAILURE"
)

func invalidKeyError(key, reason string) error {
	return errors.WithContext(
		errors.Newf(CodeInvalidKey, "invalid scratch key: %s", reason),
		"key", key,
	)
}

func ioError(err error, message, path string) error {
	return errors.WithContext(errors.Wrap(err, CodeIOFailure, message), "path", path)
}

// DeleteFailure describes a space the collector could not remove.
type DeleteFailure struct {
	Space string // Space identifier (<namespace>/<key>)
	Path  string // Path that failed to be removed
	Err   error
}

func (f DeleteFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Space, f.Err)
}

func (f DeleteFailure) Unwrap() error {
	return f.Err
}

// partialGCError aggregates failures into a single CodePartialGC error.
// Returns nil when there are no failures.
func partialGCError(failures []DeleteFailure) error {
	if len(failures) == 0 {
		return nil
	}

	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, f)
	}

	return errors.WithContext(
		errors.Wrap(stderrors.Join(errs...), CodePartialGC, fmt.Sprintf("failed to delete %d scratch space(s)", len(failures))),
		"failures", len(failures),
	)
}
