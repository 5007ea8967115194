// Package catalog provides access to the game catalog metadata provider.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a catalog id does not resolve to a game.
var ErrNotFound = errors.New("game not found in catalog")

// Provider defines the catalog metadata capability the core consumes.
type Provider interface {
	Name() string
	IsConfigured() bool
	Test(ctx context.Context) error

	LookupByID(ctx context.Context, id int64) (*GameResult, error)
	SearchByName(ctx context.Context, query string) ([]GameResult, error)

	// FranchiseMembers returns the games belonging to a franchise.
	FranchiseMembers(ctx context.Context, franchiseID int64) ([]GameResult, error)

	// CollectionMembers returns the games belonging to a collection/series.
	CollectionMembers(ctx context.Context, collectionID int64) ([]GameResult, error)

	// EditionTitles returns known edition/version titles for a game
	// (GOTY, Deluxe, Definitive and the like).
	EditionTitles(ctx context.Context, gameID int64) ([]string, error)
}
