// Package module implements the kernel-module autoloader: it resolves a
// uevent's modalias to a module via a Resolver collaborator, retrying
// later the load attempts that look transient.
package module

import "os/exec"

// Result is the classification bitmask a Resolver returns, matching the
// donor's insmod_by_dep return codes.
type Result uint32

const (
	// BadDep means a module dependency could not be resolved yet.
	BadDep Result = 1 << iota
	// InvalidCallerBlack means the blacklist file itself could not be
	// read (e.g. the filesystem backing it is not mounted yet).
	InvalidCallerBlack
	// BadAlias means the alias could not be parsed into a module name.
	BadAlias
)

// RetryLater reports whether r indicates a transient failure worth
// retrying on the next module-loading pass, rather than a terminal one
// (module genuinely does not exist, already loaded, etc).
func (r Result) RetryLater() bool {
	return r&(BadDep|InvalidCallerBlack|BadAlias) != 0
}

// Resolver is the opaque dependency-resolution collaborator spec.md §1
// calls out: given a modalias and a blacklist file path, attempt to load
// the matching module and report what happened.
type Resolver interface {
	Load(alias, blacklistPath string) Result
}

// execResolver shells out to a modprobe-equivalent helper, the direct Go
// expression of treating module loading as an external, opaque dependency
// exactly as the donor does via insmod_by_dep.
type execResolver struct {
	helperPath string
}

// NewExecResolver returns a Resolver that invokes helperPath (typically
// "modprobe" or a vendor-supplied equivalent) for every load attempt.
func NewExecResolver(helperPath string) Resolver {
	if helperPath == "" {
		helperPath = "modprobe"
	}
	return &execResolver{helperPath: helperPath}
}

func (r *execResolver) Load(alias, blacklistPath string) Result {
	cmd := exec.Command(r.helperPath, "-b", "--config", blacklistPath, alias)
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			switch exitErr.ExitCode() {
			case 1:
				return BadDep
			case 2:
				return InvalidCallerBlack
			default:
				return BadAlias
			}
		}
		// helper binary missing or unrunnable: treat as a transient
		// environment problem, not a bad alias.
		return InvalidCallerBlack
	}
	return 0
}
