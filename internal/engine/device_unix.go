//go:build linux || darwin

package engine

import (
	"io"
	"os"

	"github.com/mwaldron/vclone/internal/extent"
	"github.com/mwaldron/vclone/internal/geometry"
	"github.com/mwaldron/vclone/internal/snapshot"
)

// openDevice returns the raw read handle, extent querier, and volume
// cluster bound for the frozen source. Without raw volume access on unix
// the file itself stands in for the device: SEEK_HOLE extents are
// identity-mapped, so cluster reads address file offsets directly.
func openDevice(_ *snapshot.Handle, _ string, f *os.File, size int64,
	geom geometry.Info) (io.ReaderAt, extent.Querier, uint64, func() error, error) {
	q := extent.NewSeekHoleQuerier(f, size, geom.ClusterSize)
	return f, q, extent.Clusters(size, geom.ClusterSize), nil, nil
}
