package manifest

import (
	"errors"
	"strings"
)

// resMarker anchors a project root: everything before the resource directory
// is taken to be the project checkout path.
const resMarker = "/res"

var (
	// ErrNoResDir is returned for paths without a resource directory.
	ErrNoResDir = errors.New("no /res component")
	// ErrTooManyResDirs is returned for paths with more than two /res
	// occurrences, which cannot be split unambiguously.
	ErrTooManyResDirs = errors.New("more than two /res components")
	// ErrUnmappable is returned when nothing would be stripped off the path.
	ErrUnmappable = errors.New("cannot determine project root")
)

// Resolved is a project that has translated files to commit.
type Resolved struct {
	// Root is the project checkout path.
	Root string
	// RemoteName is the remote repository name.
	RemoteName string
	// Branch is the branch the change is pushed for review against.
	Branch string
}

// ProjectRoot derives the project root from a translated file path.
//
// The path is cut at its /res occurrence. A path with two occurrences belongs
// to a project whose own name contains "/res" (e.g. "device/resolution/res/...")
// and is cut at the second one.
func ProjectRoot(path string) (string, error) {
	path = strings.TrimSpace(path)

	var (
		root  strings.Builder
		cuts  int
		rest  = path
		index = strings.Index(rest, resMarker)
	)
	for index >= 0 {
		cuts++
		switch cuts {
		case 1:
			root.WriteString(rest[:index])
		case 2:
			root.WriteString(resMarker)
			root.WriteString(rest[:index])
		default:
			return "", ErrTooManyResDirs
		}
		rest = rest[index+len(resMarker):]
		index = strings.Index(rest, resMarker)
	}
	if cuts == 0 {
		return "", ErrNoResDir
	}

	trimmed := strings.Trim(root.String(), "/")
	if trimmed == "" || trimmed == strings.Trim(path, "/") {
		return "", ErrUnmappable
	}
	return trimmed, nil
}

// Resolver maps translated file paths to manifest projects, at most once per
// project over its lifetime.
type Resolver struct {
	manifest *Manifest
	branch   string
	seen     map[string]bool

	// OnWarning receives paths that cannot be mapped. Optional.
	OnWarning func(format string, args ...any)
}

// NewResolver returns a Resolver for the given manifest. branch is used for
// projects without a revision override.
func NewResolver(m *Manifest, branch string) *Resolver {
	return &Resolver{
		manifest: m,
		branch:   branch,
		seen:     make(map[string]bool),
	}
}

// Seen reports whether root has already been resolved.
func (r *Resolver) Seen(root string) bool {
	return r.seen[root]
}

// Resolve maps paths to projects in the order their first path appears.
// Blank paths are ignored, unmappable ones are reported through OnWarning,
// and paths outside every manifest project are dropped.
func (r *Resolver) Resolve(paths []string) []Resolved {
	var out []Resolved
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		root, err := ProjectRoot(p)
		if err != nil {
			r.warn("Cannot determine project root dir of [%s], skipping: %v", p, err)
			continue
		}

		// Projects with several translated files show up once per file.
		if r.seen[root] {
			continue
		}
		r.seen[root] = true

		proj, ok := r.manifest.Lookup(root)
		if !ok {
			continue
		}
		if proj.Path != root {
			if r.seen[proj.Path] {
				continue
			}
			r.seen[proj.Path] = true
		}

		branch := proj.Revision
		if branch == "" {
			branch = r.branch
		}
		out = append(out, Resolved{
			Root:       proj.Path,
			RemoteName: proj.Name,
			Branch:     branch,
		})
	}
	return out
}

func (r *Resolver) warn(format string, args ...any) {
	if r.OnWarning != nil {
		r.OnWarning(format, args...)
	}
}
