package cache

import (
	"context"
	"strings"

	"github.com/matzehuels/depfetch/pkg/errors"
)

// Open selects a backend from a location string:
//
//	""            NullCache
//	"redis://..." RedisCache with the "depfetch:" key prefix
//	"rediss://..." RedisCache over TLS
//	anything else FileCache rooted at that directory
func Open(ctx context.Context, location string) (Cache, error) {
	switch {
	case location == "":
		return NewNullCache(), nil
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		c, err := NewRedisCache(ctx, location, "depfetch:")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "connect descriptor cache")
		}
		return c, nil
	default:
		c, err := NewFileCache(location)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "open descriptor cache %s", location)
		}
		return c, nil
	}
}
