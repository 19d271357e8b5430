// Package devnode performs the filesystem-level work of materializing and
// tearing down device nodes and the symlinks that point at them.
package devnode

// Labeler is the opaque SELinux collaborator: given the path and mode a
// node is about to be created with, it returns the file-creation context
// to apply, or ok=false when no context applies. Production wiring of a
// real SELinux label lookup is out of scope; noopLabeler is the default.
type Labeler interface {
	Lookup(path string, mode uint32) (context string, ok bool)
}

type noopLabeler struct{}

func (noopLabeler) Lookup(string, uint32) (string, bool) { return "", false }

// NoopLabeler is used whenever SELinux labeling is unavailable or disabled.
var NoopLabeler Labeler = noopLabeler{}
