package datasource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/taxa/pkg/config"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/logging"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

const header = "taxon_id,simple_name,common_name_c,alternative_name_c,status_id,kingdom,kingdom_c,phylum,phylum_c,class,class_c,order,order_c,family,family_c,subfamily,subfamily_c\n"

func TestResolve(t *testing.T) {
	cfg := config.DefaultConfig()
	tests := []struct {
		name    string
		targets []string
		want    SourceType
		wantErr bool
	}{
		{"default api", nil, SourceTypeAPI, false},
		{"explicit url", []string{"https://example.org/api/library/1"}, SourceTypeAPI, false},
		{"sqlite file", []string{"taxa.db"}, SourceTypeSQLite, false},
		{"postgres url", []string{"postgres://u:p@localhost/taxa"}, SourceTypePostgres, false},
		{"record files", []string{"a.csv", "b.jsonl"}, SourceTypeFiles, false},
		{"mixed kinds", []string{"a.csv", "taxa.db"}, "", true},
		{"two urls", []string{"http://a", "http://b"}, "", true},
		{"unknown", []string{"notes.txt"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Resolve(tt.targets, cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ds.Type)
		})
	}
}

func TestResolveNoAPI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = ""
	_, err := Resolve(nil, cfg)
	assert.Error(t, err)
}

func TestDataSourceStringRedactsPassword(t *testing.T) {
	ds := DataSource{Type: SourceTypePostgres, Location: "postgres://taxa:secret@db/taxa"}
	assert.NotContains(t, ds.String(), "secret")
	assert.False(t, ds.Local())
}

func TestOpenSessionFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checklist.csv")
	rows := header +
		"t1,Canis lupus,灰狼,,2,Animalia,,Chordata,,Mammalia,,Carnivora,,Canidae,,Caninae,\n" +
		"t2,Felis catus,家猫,,1,Animalia,,Chordata,,Mammalia,,Carnivora,,Felidae,,Felinae,\n" +
		"t3,Incomplete,,,1,Animalia,,Chordata,,,,,,,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))

	ctx := context.Background()
	ds, err := Resolve([]string{path}, config.DefaultConfig())
	require.NoError(t, err)
	sess, err := OpenSession(ctx, ds, config.DefaultConfig(), logging.Discard())
	require.NoError(t, err)
	defer sess.Close()
	require.NotNil(t, sess.Files)

	tree, err := listing.LoadTree(ctx, sess.Source)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Total())
	assert.NotEmpty(t, sess.Files.Warnings())

	// Appending a record and reloading replaces the store contents.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("t4,Vulpes vulpes,赤狐,,1,Animalia,,Chordata,,Mammalia,,Carnivora,,Canidae,,Caninae,\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rebuilt, err := sess.Files.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rebuilt.Total())

	page, err := sess.Source.Items(ctx, viewstate.QueryState{FreeText: "vulpes", PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "t4", page.Items[0].ID)
}

func TestReloadKeepsContentsOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checklist.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+
		"t1,Canis lupus,,,1,Animalia,,Chordata,,Mammalia,,Carnivora,,Canidae,,Caninae,\n"), 0o644))

	ctx := context.Background()
	sess, err := OpenSession(ctx, DataSource{Type: SourceTypeFiles, Paths: []string{path}}, config.DefaultConfig(), logging.Discard())
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(header, "simple_name", "nope", 1)), 0o644))
	_, err = sess.Files.Reload(ctx)
	assert.Error(t, err)

	page, err := sess.Source.Items(ctx, viewstate.QueryState{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}
