package datasource

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

func classified(id, name, nameZh string, status model.Status, ranks ...string) model.ClassifiedRecord {
	r := model.ClassifiedRecord{ID: id, ScientificName: name, CommonName: nameZh, Status: status}
	for _, rank := range ranks {
		r.Ranks = append(r.Ranks, model.RankValue{Name: rank})
	}
	return r
}

func sampleTree(t *testing.T) *hierarchy.Tree {
	t.Helper()
	fox := classified("3", "Vulpes vulpes", "赤狐", model.StatusCurrent,
		"Animalia", "Chordata", "Mammalia", "Carnivora", "Canidae", "Caninae")
	fox.OtherCommonNames = []string{"红狐"}
	tree, warnings := hierarchy.Build([]model.ClassifiedRecord{
		classified("1", "Canis lupus", "灰狼", model.Status(2),
			"Animalia", "Chordata", "Mammalia", "Carnivora", "Canidae", "Caninae"),
		classified("2", "Felis catus", "家猫", model.StatusCurrent,
			"Animalia", "Chordata", "Mammalia", "Carnivora", "Felidae", "Felinae"),
		fox,
	})
	require.Empty(t, warnings)
	return tree
}

func openStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "taxa.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Import(ctx, sampleTree(t))
	require.NoError(t, err)
	return s
}

func ids(page model.ResultPage) []string {
	out := make([]string, len(page.Items))
	for i, it := range page.Items {
		out[i] = it.ID
	}
	return out
}

func int64Ptr(v int64) *int64 { return &v }

func TestImportStats(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	stats, err := s.Import(ctx, sampleTree(t))
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Collections)
	assert.Equal(t, 3, stats.Records)
	// Six-deep chain: 1+2+3+4+5+6, plus Felidae (5) and Felinae (6).
	assert.Equal(t, 32, stats.Closure)
}

func TestCollectionsCounts(t *testing.T) {
	s := openStore(t)
	payload, err := s.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, payload, 1)

	root := payload[0]
	assert.Equal(t, int64(1), root.ID)
	assert.Equal(t, "Animalia", root.Name)
	assert.Equal(t, "kingdom", root.Level)
	require.NotNil(t, root.Count)
	assert.Equal(t, 3, *root.Count)

	order := root.Children[0].Children[0].Children[0]
	require.Len(t, order.Children, 2)
	assert.Equal(t, "Canidae", order.Children[0].Name)
	assert.Equal(t, int64(5), order.Children[0].ID)
	assert.Equal(t, 2, *order.Children[0].Count)
	assert.Equal(t, "Felidae", order.Children[1].Name)
	assert.Equal(t, 1, *order.Children[1].Count)
}

func TestCollectionsDepthLimit(t *testing.T) {
	s := openStore(t, WithHierarchyDepth(2))
	payload, err := s.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, payload[0].Children, 1)
	assert.Empty(t, payload[0].Children[0].Children)
	assert.Equal(t, 3, *payload[0].Children[0].Count)
}

func TestReimportKeepsIDs(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	before, err := s.Collections(ctx)
	require.NoError(t, err)
	_, err = s.Import(ctx, sampleTree(t))
	require.NoError(t, err)
	after, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestItemsFilters(t *testing.T) {
	s := openStore(t)
	tests := []struct {
		name  string
		q     viewstate.QueryState
		want  []string
		total int
	}{
		{"all in import order", viewstate.QueryState{PageSize: 20}, []string{"1", "3", "2"}, 3},
		{"scientific name", viewstate.QueryState{FreeText: "lupus", PageSize: 20}, []string{"1"}, 1},
		{"case insensitive", viewstate.QueryState{FreeText: "CANIS", PageSize: 20}, []string{"1"}, 1},
		{"localized name", viewstate.QueryState{FreeText: "家猫", PageSize: 20}, []string{"2"}, 1},
		{"other names not searched", viewstate.QueryState{FreeText: "红狐", PageSize: 20}, []string{}, 0},
		{"wildcard is literal", viewstate.QueryState{FreeText: "%", PageSize: 20}, []string{}, 0},
		{"collection subtree", viewstate.QueryState{CollectionID: int64Ptr(5), PageSize: 20}, []string{"1", "3"}, 2},
		{"text and collection", viewstate.QueryState{FreeText: "felis", CollectionID: int64Ptr(5), PageSize: 20}, []string{}, 0},
		{"second page", viewstate.QueryState{Page: 1, PageSize: 2}, []string{"2"}, 3},
		{"sort desc", viewstate.QueryState{PageSize: 20, Sort: &viewstate.SortSpec{Field: viewstate.SortByName, Direction: viewstate.SortDescending}}, []string{"3", "2", "1"}, 3},
		{"sort by status", viewstate.QueryState{PageSize: 20, Sort: &viewstate.SortSpec{Field: viewstate.SortByStatus}}, []string{"3", "2", "1"}, 3},
		{"unknown sort falls back", viewstate.QueryState{PageSize: 20, Sort: &viewstate.SortSpec{Field: "id; DROP TABLE records"}}, []string{"1", "3", "2"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.Items(context.Background(), tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.want, ids(page))
		})
	}
}

func TestItemsRowFields(t *testing.T) {
	s := openStore(t)
	page, err := s.Items(context.Background(), viewstate.QueryState{FreeText: "Vulpes", PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	fox := page.Items[0]
	assert.Equal(t, "Vulpes vulpes", fox.ScientificName)
	assert.Equal(t, "赤狐", fox.CommonName)
	assert.Equal(t, "红狐", fox.OtherNames)
	assert.Equal(t, model.StatusCurrent, fox.Status)
}

func TestItemPath(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	it, err := s.Item(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Felis catus", it.ScientificName)
	require.Len(t, it.Path, 6)
	assert.Equal(t, "Animalia", it.Path[0].Name)
	assert.Equal(t, "Felinae", it.Path[5].Name)

	_, err = s.Item(ctx, "missing")
	assert.ErrorIs(t, err, listing.ErrNotFound)
}

func TestRecordsRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	records, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "3", records[1].ID)
	assert.Equal(t, []string{"红狐"}, records[1].OtherCommonNames)
	require.Len(t, records[1].Ranks, 6)
	assert.Equal(t, "Caninae", records[1].Ranks[5].Name)

	levels, err := s.Levels(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRanks, levels)

	tree, err := s.Tree(ctx)
	require.NoError(t, err)
	original := sampleTree(t)
	assert.Equal(t, original.Len(), tree.Len())
	assert.Equal(t, original.Roots[0].ID, tree.Roots[0].ID)
}

func TestStoreImplementsSource(t *testing.T) {
	var _ listing.Source = (*Store)(nil)
	var _ listing.ItemGetter = (*Store)(nil)
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, q, DriverSQLite.rebind(q))
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", DriverPostgres.rebind(q))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{"": DriverSQLite, "SQLite3": DriverSQLite, "postgresql": DriverPostgres, "pgx": DriverPostgres} {
		got, err := ParseDriver(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDriver("mysql")
	assert.Error(t, err)
}
