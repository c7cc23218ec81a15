// Package repository describes remote Maven-layout repositories.
package repository

import (
	"strings"

	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/errors"
)

// MavenCentral is the host of the Maven Central repository.
const MavenCentral = "https://repo.maven.apache.org/maven2"

// Repository is a remote host serving artifacts in the standard layout.
type Repository struct {
	Host string
}

// New returns a repository for host with trailing slashes removed.
func New(host string) Repository {
	return Repository{Host: strings.TrimRight(strings.TrimSpace(host), "/")}
}

// Parse is like [New] but rejects hosts that are not http(s) URLs.
func Parse(host string) (Repository, error) {
	r := New(host)
	if err := errors.ValidateURL(r.Host); err != nil {
		return Repository{}, err
	}
	return r, nil
}

// ParseAll parses hosts in order, failing on the first invalid one.
func ParseAll(hosts []string) ([]Repository, error) {
	repos := make([]Repository, 0, len(hosts))
	for _, h := range hosts {
		r, err := Parse(h)
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, nil
}

// ArtifactURL returns the URL of c's artifact file.
func (r Repository) ArtifactURL(c coord.Coordinate) string {
	return r.Host + "/" + c.RemotePath()
}

// HashURL returns the URL of c's hash file.
func (r Repository) HashURL(c coord.Coordinate) string {
	return r.Host + "/" + c.HashRemotePath()
}

func (r Repository) String() string { return r.Host }
