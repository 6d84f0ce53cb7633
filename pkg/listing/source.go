// Package listing fetches paged record listings and keeps only the answer
// to the most recent request.
package listing

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

// Source answers listing and hierarchy queries. The HTTP Client and the
// SQL store both implement it.
type Source interface {
	Collections(ctx context.Context) ([]model.CollectionNode, error)
	Items(ctx context.Context, q viewstate.QueryState) (model.ResultPage, error)
}

// ItemGetter is implemented by sources that can fetch one record with its
// taxonomy path.
type ItemGetter interface {
	Item(ctx context.Context, id string) (model.RecordSummary, error)
}

// LoadTree fetches the collections payload and converts it to a Tree.
func LoadTree(ctx context.Context, src Source) (*hierarchy.Tree, error) {
	payload, err := src.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy tree: %w", err)
	}
	return hierarchy.FromCollections(payload), nil
}
