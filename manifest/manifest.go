// Package manifest reads repo-style XML project manifests and maps the file
// paths reported by Crowdin back to the projects that own them.
package manifest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Project is one <project> entry of a manifest.
type Project struct {
	// Path is the checkout path relative to the source tree root.
	Path string
	// Name is the remote repository name.
	Name string
	// Revision overrides the target branch when set.
	Revision string
}

// Manifest is the ordered set of projects from one or more manifest files.
type Manifest struct {
	Projects []Project
}

// ParseFile reads and parses a manifest file.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// Parse collects every <project> element of a manifest, at any depth.
// A project without a path attribute is checked out at its name.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "project" {
			continue
		}

		var p Project
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "path":
				p.Path = attr.Value
			case "name":
				p.Name = attr.Value
			case "revision":
				p.Revision = attr.Value
			}
		}
		if p.Path == "" {
			p.Path = p.Name
		}
		p.Path = strings.Trim(p.Path, "/")
		if p.Path == "" {
			continue
		}
		m.Projects = append(m.Projects, p)
	}
	return m, nil
}

// Source names one manifest file to load.
type Source struct {
	Path string
	// Optional sources are skipped when the file does not exist.
	Optional bool
}

// Load reads and merges manifests in order.
func Load(sources ...Source) (*Manifest, error) {
	merged := &Manifest{}
	for _, src := range sources {
		if src.Optional {
			if _, err := os.Stat(src.Path); os.IsNotExist(err) {
				continue
			}
		}
		m, err := ParseFile(src.Path)
		if err != nil {
			return nil, err
		}
		merged.Projects = append(merged.Projects, m.Projects...)
	}
	return merged, nil
}

// Lookup returns the most specific project containing root: the entry whose
// path equals root or is one of its ancestor directories, preferring the
// longest path. Manifest order only matters between entries with identical
// paths, where the first one wins.
func (m *Manifest) Lookup(root string) (Project, bool) {
	var (
		best  Project
		found bool
	)
	for _, p := range m.Projects {
		if !within(root, p.Path) {
			continue
		}
		if !found || moreSpecific(p, best) {
			best = p
			found = true
		}
	}
	return best, found
}

// moreSpecific reports whether a is a better match than b.
func moreSpecific(a, b Project) bool {
	return len(a.Path) > len(b.Path)
}

// within reports whether root is dir or lies below it, comparing whole path
// segments so that "foo/barbaz" is not inside "foo/bar".
func within(root, dir string) bool {
	rs := strings.Split(root, "/")
	ds := strings.Split(dir, "/")
	if len(ds) > len(rs) {
		return false
	}
	for i := range ds {
		if ds[i] != rs[i] {
			return false
		}
	}
	return true
}
