// Package manifest reads declarative dependency manifests.
//
// A manifest is a TOML file listing repositories, dependencies and
// relocation rules:
//
//	repositories = ["https://repo.maven.apache.org/maven2"]
//
//	[[dependency]]
//	coordinate = "com.google.guava:guava:33.0.0-jre"
//	hash = "..."           # optional
//	algorithm = "SHA256"   # optional, default MD5
//	scope = "compile"      # optional
//	snapshot = "..."       # optional timestamped snapshot qualifier
//
//	[[relocation]]
//	pattern = "com.google"
//	target = "my.shaded.com.google"
//
// The algorithm name, lowercased, is also the extension of the hash file
// fetched from the repository. Maven repositories serve ".md5", ".sha1",
// ".sha256" and ".sha512", so spell algorithms without a dash.
//
// Dependencies keep their file order; that order decides task order.
package manifest

import (
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/digest"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/relocation"
	"github.com/matzehuels/depfetch/pkg/repository"
)

// Manifest is a parsed, validated manifest.
type Manifest struct {
	Repositories []repository.Repository
	Dependencies []coord.Coordinate
	Relocations  []relocation.Rule
}

type file struct {
	Repositories []string          `toml:"repositories"`
	Dependencies []dependencyEntry `toml:"dependency"`
	Relocations  []relocation.Rule `toml:"relocation"`
}

type dependencyEntry struct {
	Coordinate string `toml:"coordinate"`
	Hash       string `toml:"hash"`
	Algorithm  string `toml:"algorithm"`
	Scope      string `toml:"scope"`
	Snapshot   string `toml:"snapshot"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "open manifest")
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "manifest %s", path)
	}
	return m, nil
}

// Parse decodes a manifest. Unknown keys are rejected so typos do not
// silently drop dependencies.
func Parse(r io.Reader) (*Manifest, error) {
	var raw file
	md, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "decode manifest")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown manifest keys: %s", strings.Join(keys, ", "))
	}

	m := &Manifest{Relocations: raw.Relocations}

	repos, err := repository.ParseAll(raw.Repositories)
	if err != nil {
		return nil, err
	}
	m.Repositories = repos

	for i, d := range raw.Dependencies {
		c, err := d.coordinate()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "dependency #%d", i+1)
		}
		m.Dependencies = append(m.Dependencies, c)
	}

	for i, r := range raw.Relocations {
		if err := r.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "relocation #%d", i+1)
		}
	}
	return m, nil
}

func (d dependencyEntry) coordinate() (coord.Coordinate, error) {
	c, err := coord.Parse(d.Coordinate)
	if err != nil {
		return coord.Coordinate{}, err
	}
	if d.Algorithm != "" && !digest.Supported(d.Algorithm) {
		return coord.Coordinate{}, errors.New(errors.ErrCodeConfiguration, "unsupported hash algorithm %q", d.Algorithm)
	}
	c = c.WithHash(strings.ToLower(strings.TrimSpace(d.Hash)), d.Algorithm)

	scope, err := coord.ParseScope(d.Scope)
	if err != nil {
		return coord.Coordinate{}, err
	}
	c = c.WithScope(scope)

	if d.Snapshot != "" {
		c = c.WithSnapshot(d.Snapshot)
		if err := c.Validate(); err != nil {
			return coord.Coordinate{}, err
		}
	}
	return c, nil
}

// RelocationSet returns the manifest's relocation rules as a set.
func (m *Manifest) RelocationSet() *relocation.Set {
	return relocation.NewSet(m.Relocations...)
}
