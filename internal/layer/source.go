// internal/layer/source.go - Local GeoJSON source reading
package layer

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb/geojson"

	"parceldash/internal"
)

// ReadFeatureCollection reads a GeoJSON FeatureCollection from a local
// file, transparently decompressing .gz sources. Network ingestion is a
// separate collaborator; by the time data reaches this pipeline it is a
// file on disk.
func ReadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, internal.NewError(internal.ErrorCodeNotFound,
				fmt.Sprintf("source file not found: %s", path), err)
		}
		return nil, internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("cannot access source file: %s", path), err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeFileSystem,
				fmt.Sprintf("cannot decompress source file: %s", path), err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to read source file: %s", path), err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing,
			fmt.Sprintf("failed to parse GeoJSON: %s", path), err)
	}

	return fc, nil
}
