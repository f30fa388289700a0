package app

import (
	"context"
	"errors"

	"github.com/dkeye/Space/internal/domain"
)

var ErrSpaceNotFound = errors.New("space not found")

// SpaceDirectory confirms a space identifier exists and returns its static
// attributes. It is an external collaborator; the engine only caches the
// returned copy for the lifetime of a room.
type SpaceDirectory interface {
	Lookup(ctx context.Context, id domain.SpaceID) (domain.Space, error)
}

// StaticDirectory serves the directory from configuration. With
// allowUnlisted set, unknown identifiers resolve to a default space so
// deployments without a directory still work.
type StaticDirectory struct {
	spaces        map[domain.SpaceID]domain.Space
	allowUnlisted bool
	defaultMap    domain.MapID
}

func NewStaticDirectory(spaces []domain.Space, allowUnlisted bool, defaultMap domain.MapID) *StaticDirectory {
	byID := make(map[domain.SpaceID]domain.Space, len(spaces))
	for _, s := range spaces {
		byID[s.ID] = s
	}
	return &StaticDirectory{spaces: byID, allowUnlisted: allowUnlisted, defaultMap: defaultMap}
}

func (d *StaticDirectory) Lookup(_ context.Context, id domain.SpaceID) (domain.Space, error) {
	if id == "" {
		return domain.Space{}, ErrSpaceNotFound
	}
	if s, ok := d.spaces[id]; ok {
		return s, nil
	}
	if d.allowUnlisted {
		return domain.Space{ID: id, MapID: d.defaultMap}, nil
	}
	return domain.Space{}, ErrSpaceNotFound
}
