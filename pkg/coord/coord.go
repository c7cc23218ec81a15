package coord

import (
	"fmt"
	"strings"

	"github.com/matzehuels/depfetch/pkg/errors"
)

// DefaultAlgorithm is the hash algorithm used when a coordinate does not name one.
const DefaultAlgorithm = "MD5"

// Type is the packaging type of an artifact file.
type Type string

const (
	TypeJar Type = "jar"
	TypePOM Type = "pom"
)

// Coordinate identifies one artifact file in a Maven-layout repository.
//
// Identity (see [Coordinate.Key]) is group, artifact, version, classifier and
// snapshot qualifier. Hash and Algorithm describe how the file is verified and
// never take part in equality. Scope only applies to jar coordinates.
//
// The zero Type is treated as [TypeJar] and the zero Algorithm as
// [DefaultAlgorithm], so struct literals behave like parsed coordinates.
type Coordinate struct {
	GroupID    string // e.g. "com.google.guava"
	ArtifactID string // e.g. "guava"
	Version    string // e.g. "33.0.0-jre" or "1.0-SNAPSHOT"
	Classifier string // optional, e.g. "sources"
	Type       Type   // jar or pom
	Snapshot   string // optional timestamped snapshot qualifier
	Hash       string // optional declared digest, lowercase hex
	Algorithm  string // digest algorithm name, e.g. "SHA-256"
	Scope      Scope  // dependency scope (jar only)
}

// Key is the comparable identity of a coordinate.
type Key struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Snapshot   string
}

// Parse parses "groupId:artifactId:version[:classifier]" into a jar
// coordinate with compile scope and the default hash algorithm.
// Any other segment count fails with a configuration error.
func Parse(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 && len(parts) != 4 {
		return Coordinate{}, errors.New(errors.ErrCodeConfiguration,
			"invalid coordinate %q (expected groupId:artifactId:version[:classifier])", s)
	}

	c := Coordinate{
		GroupID:    parts[0],
		ArtifactID: parts[1],
		Version:    parts[2],
		Type:       TypeJar,
		Algorithm:  DefaultAlgorithm,
		Scope:      ScopeCompile,
	}
	if len(parts) == 4 {
		c.Classifier = parts[3]
	}
	if err := c.Validate(); err != nil {
		return Coordinate{}, errors.Wrap(errors.ErrCodeConfiguration, err, "invalid coordinate %q", s)
	}
	return c, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// package-level declarations.
func MustParse(s string) Coordinate {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks that every segment is safe to use as a path component.
func (c Coordinate) Validate() error {
	checks := []struct{ kind, value string }{
		{"groupId", c.GroupID},
		{"artifactId", c.ArtifactID},
		{"version", c.Version},
	}
	if c.Classifier != "" {
		checks = append(checks, struct{ kind, value string }{"classifier", c.Classifier})
	}
	if c.Snapshot != "" {
		checks = append(checks, struct{ kind, value string }{"snapshot", c.Snapshot})
	}
	for _, ch := range checks {
		if err := errors.ValidateSegment(ch.kind, ch.value); err != nil {
			return err
		}
	}
	return nil
}

// Key returns the identity used for equality and deduplication.
func (c Coordinate) Key() Key {
	return Key{
		GroupID:    c.GroupID,
		ArtifactID: c.ArtifactID,
		Version:    c.Version,
		Classifier: c.Classifier,
		Snapshot:   c.Snapshot,
	}
}

// Equal reports whether c and o have the same identity.
func (c Coordinate) Equal(o Coordinate) bool { return c.Key() == o.Key() }

// IsSnapshot reports whether c carries a snapshot qualifier.
func (c Coordinate) IsSnapshot() bool { return c.Snapshot != "" }

// MustDownload reports whether the coordinate's scope requires the artifact
// at runtime.
func (c Coordinate) MustDownload() bool { return c.Scope.MustDownload() }

// Kind returns the packaging type, defaulting to jar.
func (c Coordinate) Kind() Type {
	if c.Type == "" {
		return TypeJar
	}
	return c.Type
}

// HashAlgorithm returns the digest algorithm, defaulting to [DefaultAlgorithm].
func (c Coordinate) HashAlgorithm() string {
	if c.Algorithm == "" {
		return DefaultAlgorithm
	}
	return c.Algorithm
}

// POM derives the descriptor coordinate for c: same group, artifact,
// version, classifier and snapshot with type pom. A declared hash belongs to
// the artifact, so it is dropped; the algorithm is kept and selects the
// descriptor's hash file.
func (c Coordinate) POM() Coordinate {
	p := c
	p.Type = TypePOM
	p.Scope = ScopeCompile
	p.Hash = ""
	return p
}

// FileName returns "artifactId-version[-classifier].type". Snapshot
// coordinates use the snapshot qualifier in place of the version.
func (c Coordinate) FileName() string {
	version := c.Version
	if c.IsSnapshot() {
		version = c.Snapshot
	}
	name := c.ArtifactID + "-" + version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + string(c.Kind())
}

// HashFileName returns the file name of the hash sidecar,
// e.g. "guava-33.0.0-jre.jar.sha256" for algorithm "SHA256".
func (c Coordinate) HashFileName() string {
	return c.FileName() + "." + strings.ToLower(c.HashAlgorithm())
}

// RemotePath returns the repository-relative path of the artifact.
func (c Coordinate) RemotePath() string {
	return c.remoteDir() + "/" + c.FileName()
}

// HashRemotePath returns the repository-relative path of the hash file.
func (c Coordinate) HashRemotePath() string {
	return c.remoteDir() + "/" + c.HashFileName()
}

func (c Coordinate) remoteDir() string {
	return fmt.Sprintf("%s/%s/%s", strings.ReplaceAll(c.GroupID, ".", "/"), c.ArtifactID, c.Version)
}

// String renders "groupId:artifactId:version[:classifier]".
func (c Coordinate) String() string {
	s := c.GroupID + ":" + c.ArtifactID + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	return s
}

// WithHash returns a copy of c with a declared hash and algorithm.
// An empty algorithm keeps the current one.
func (c Coordinate) WithHash(hash, algorithm string) Coordinate {
	c.Hash = hash
	if algorithm != "" {
		c.Algorithm = algorithm
	}
	return c
}

// WithScope returns a copy of c with the given scope.
func (c Coordinate) WithScope(s Scope) Coordinate {
	c.Scope = s
	return c
}

// WithSnapshot returns a copy of c with the given snapshot qualifier.
func (c Coordinate) WithSnapshot(qualifier string) Coordinate {
	c.Snapshot = qualifier
	return c
}
