package storage

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log"
	"os"
	"path"

	"github.com/matst80/slask-fordon/pkg/facet"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/types"
)

const itemsFile = "inventory.jz"
const facetsFile = "facets.json"

func (d *DiskStorage) ensureFolder() error {
	return os.MkdirAll(path.Join(d.RootFolder, d.Country), 0o755)
}

// LoadItems streams the inventory snapshot into the writer in batches.
// A missing snapshot is not an error, the index starts empty.
func (d *DiskStorage) LoadItems(writer repository.Writer, batchSize int) (int, error) {
	fileName, _ := d.GetFileName(itemsFile)
	file, err := os.Open(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("no inventory snapshot at %s", fileName)
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	zipReader, err := gzip.NewReader(file)
	if err != nil {
		return 0, err
	}
	defer zipReader.Close()

	if batchSize <= 0 {
		batchSize = 500
	}
	dec := json.NewDecoder(zipReader)
	batch := make([]types.Item, 0, batchSize)
	count := 0
	for {
		item := types.Item{}
		if err = dec.Decode(&item); err != nil {
			break
		}
		batch = append(batch, item)
		if len(batch) >= batchSize {
			writer.Upsert(batch...)
			count += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		writer.Upsert(batch...)
		count += len(batch)
	}
	if errors.Is(err, io.EOF) {
		log.Printf("loaded %d items from %s", count, fileName)
		return count, nil
	}
	return count, err
}

// SaveItems writes a gzipped json stream to a temporary file and renames it
// over the previous snapshot once complete.
func (d *DiskStorage) SaveItems(items iter.Seq[types.Item]) error {
	if err := d.ensureFolder(); err != nil {
		return err
	}
	fileName, tmpFileName := d.GetFileName(itemsFile)

	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}

	zipWriter := gzip.NewWriter(file)
	enc := json.NewEncoder(zipWriter)
	count := 0
	for item := range items {
		if err = enc.Encode(item); err != nil {
			break
		}
		count++
	}
	if err == nil {
		err = zipWriter.Close()
	} else {
		_ = zipWriter.Close()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}

	if err = os.Rename(tmpFileName, fileName); err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	log.Printf("saved %d items to %s", count, fileName)
	return nil
}

func (d *DiskStorage) SaveJson(data any, name string) error {
	if err := d.ensureFolder(); err != nil {
		return err
	}
	fileName, tmpFileName := d.GetFileName(name)
	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	err = enc.Encode(data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	return os.Rename(tmpFileName, fileName)
}

func (d *DiskStorage) LoadJson(data any, name string) error {
	fileName, _ := d.GetFileName(name)
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	err = json.NewDecoder(file).Decode(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadDimensions reads the facet dimensions with their label vocabulary,
// falling back to the defaults when none are stored.
func (d *DiskStorage) LoadDimensions() []facet.Dimension {
	dims := make([]facet.Dimension, 0)
	if err := d.LoadJson(&dims, facetsFile); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("could not read facet dimensions, using defaults: %v", err)
		}
		return facet.DefaultDimensions
	}
	if len(dims) == 0 {
		return facet.DefaultDimensions
	}
	return dims
}

func (d *DiskStorage) SaveDimensions(dims []facet.Dimension) error {
	return d.SaveJson(dims, facetsFile)
}
