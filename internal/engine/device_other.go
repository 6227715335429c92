//go:build !linux && !darwin && !windows

package engine

import (
	"io"
	"os"

	"github.com/mwaldron/vclone/internal/extent"
	"github.com/mwaldron/vclone/internal/geometry"
	"github.com/mwaldron/vclone/internal/snapshot"
)

func openDevice(_ *snapshot.Handle, _ string, f *os.File, size int64,
	geom geometry.Info) (io.ReaderAt, extent.Querier, uint64, func() error, error) {
	q := extent.WholeFileQuerier{Size: size, ClusterSize: geom.ClusterSize}
	return f, q, extent.Clusters(size, geom.ClusterSize), nil, nil
}
