package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/testutil"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

func TestGeneratedChecklistCountsMatchClosure(t *testing.T) {
	ctx := context.Background()
	records := testutil.New(testutil.GeneratorConfig{Seed: 11, Branching: 3}).Random(400)
	tree, warnings := hierarchy.Build(records)
	require.Empty(t, warnings)

	s, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer s.Close()
	stats, err := s.Import(ctx, tree)
	require.NoError(t, err)
	assert.Equal(t, 400, stats.Records)
	assert.Equal(t, tree.Len(), stats.Collections)

	payload, err := s.Collections(ctx)
	require.NoError(t, err)
	remote := hierarchy.FromCollections(payload)
	testutil.AssertCountsConsistent(t, remote)
	testutil.AssertRecordCount(t, remote, 400)

	// Filtering the listing by any collection yields exactly its count.
	var check func(nodes []model.CollectionNode)
	check = func(nodes []model.CollectionNode) {
		for _, c := range nodes {
			id := c.ID
			page, err := s.Items(ctx, viewstate.QueryState{CollectionID: &id, PageSize: 5})
			require.NoError(t, err)
			require.NotNil(t, c.Count)
			assert.Equal(t, *c.Count, page.Total, "collection %s", c.Name)
			assert.LessOrEqual(t, len(page.Items), 5)
			check(c.Children)
		}
	}
	check(payload)
}

func TestGeneratedChecklistRebuildsSameTree(t *testing.T) {
	ctx := context.Background()
	tree, _ := hierarchy.Build(testutil.NewDefault().Balanced())

	s, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Import(ctx, tree)
	require.NoError(t, err)

	rebuilt, err := s.Tree(ctx)
	require.NoError(t, err)
	testutil.AssertSingleParent(t, rebuilt)
	testutil.AssertCountsConsistent(t, rebuilt)
	assert.Equal(t, tree.Len(), rebuilt.Len())

	// Node ids derive from rank paths, so they survive the round trip.
	tree.Walk(func(n *hierarchy.Node) bool {
		assert.NotNil(t, rebuilt.Find(n.ID), "node %s", n.Name)
		return true
	})
}
