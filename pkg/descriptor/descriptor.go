// Package descriptor parses the dependency list out of artifact descriptors.
//
// Only the direct <dependencies> of a POM are read. Parent inheritance,
// property interpolation and dependency management are not applied, so
// entries that rely on them (a missing version, or a ${...} placeholder)
// are skipped rather than guessed. Optional dependencies are skipped as well.
package descriptor

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/errors"
)

// Parser extracts the declared dependencies of a descriptor.
type Parser interface {
	Parse(r io.Reader) ([]coord.Coordinate, error)
}

// ParserFunc adapts a function to [Parser].
type ParserFunc func(r io.Reader) ([]coord.Coordinate, error)

// Parse calls f.
func (f ParserFunc) Parse(r io.Reader) ([]coord.Coordinate, error) { return f(r) }

// POM parses Maven POM files. The zero value is ready to use.
type POM struct{}

type pomProject struct {
	XMLName      xml.Name        `xml:"project"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Classifier string `xml:"classifier"`
	Type       string `xml:"type"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
}

// Parse implements [Parser]. Children are jar coordinates with no
// classifier, no declared hash and the default algorithm. A missing scope
// means compile.
func (POM) Parse(r io.Reader) ([]coord.Coordinate, error) {
	var pom pomProject
	if err := xml.NewDecoder(r).Decode(&pom); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse pom")
	}

	var deps []coord.Coordinate
	seen := make(map[coord.Key]bool)
	for _, d := range pom.Dependencies {
		g, a, v := strings.TrimSpace(d.GroupID), strings.TrimSpace(d.ArtifactID), strings.TrimSpace(d.Version)
		if strings.EqualFold(strings.TrimSpace(d.Optional), "true") {
			continue
		}
		if unresolved(g) || unresolved(a) || unresolved(v) {
			continue
		}
		if t := strings.TrimSpace(d.Type); t != "" && t != "jar" {
			continue
		}

		scope, err := coord.ParseScope(d.Scope)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "dependency %s:%s", g, a)
		}
		c := coord.Coordinate{
			GroupID:    g,
			ArtifactID: a,
			Version:    v,
			Type:       coord.TypeJar,
			Algorithm:  coord.DefaultAlgorithm,
			Scope:      scope,
		}
		if err := c.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "dependency %s:%s", g, a)
		}
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		deps = append(deps, c)
	}
	return deps, nil
}

func unresolved(s string) bool {
	return s == "" || strings.Contains(s, "${")
}

var _ Parser = POM{}
