package storage

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matst80/slask-fordon/pkg/facet"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsRoundTrip(t *testing.T) {
	ds := NewDiskStorage("se", t.TempDir())
	items := []types.Item{
		{Id: "1", Domain: types.DomainVehicles, Title: "Volvo 240", Vendor: "Volvo", Year: 1990, Status: types.StatusActive},
		{Id: "2", Domain: types.DomainParts, Title: "240 grille", Vendor: "Volvo", Status: types.StatusActive},
		{Id: "3", Domain: types.DomainVehicles, Title: "Saab 96", Vendor: "Saab", Year: 1971, Status: types.StatusSold},
	}
	require.NoError(t, ds.SaveItems(slices.Values(items)))

	repo := repository.NewMemory()
	count, err := ds.LoadItems(repo, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, items, repo.Items())

	entries, err := os.ReadDir(filepath.Join(ds.RootFolder, ds.Country))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are renamed away")
}

func TestLoadMissingSnapshot(t *testing.T) {
	ds := NewDiskStorage("se", t.TempDir())
	count, err := ds.LoadItems(repository.NewMemory(), 10)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	ds := NewDiskStorage("se", t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(ds.RootFolder, ds.Country), 0o755))
	fileName, _ := ds.GetFileName(itemsFile)
	require.NoError(t, os.WriteFile(fileName, []byte("not gzip"), 0o644))
	_, err := ds.LoadItems(repository.NewMemory(), 10)
	assert.Error(t, err)
}

func TestDimensions(t *testing.T) {
	ds := NewDiskStorage("se", t.TempDir())
	assert.Equal(t, facet.DefaultDimensions, ds.LoadDimensions())

	dims := []facet.Dimension{
		{Field: types.FieldVendor, Name: "Märke", Labels: map[string]string{"vw": "Volkswagen"}},
	}
	require.NoError(t, ds.SaveDimensions(dims))
	assert.Equal(t, dims, ds.LoadDimensions())
}
