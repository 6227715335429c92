// Package geometry resolves the I/O granularity of the volume hosting a
// transfer: the device sector size, which raw reads must be aligned to,
// and the filesystem cluster size, the unit extent maps are expressed in.
package geometry

import "log/slog"

// DefaultSectorSize is substituted when hardware queries fail. It is the
// largest sector size in common use: over-aligning reads merely wastes a
// little bandwidth, while under-aligning them would fail outright on an
// unbuffered device handle.
const DefaultSectorSize = 4096

// DefaultClusterSize is the fallback allocation unit, matching the NTFS
// and ext4 default of one 4 KiB cluster per block.
const DefaultClusterSize = 4096

// Info describes one volume's geometry. Immutable for the duration of a
// transfer once resolved.
type Info struct {
	SectorSize  uint32
	ClusterSize uint32
}

// Resolve determines sector and cluster size for the volume containing
// path. It never fails: when the platform probes come up empty it degrades
// to the documented defaults and logs a warning, because a too-large
// sector size is safe where a too-small one would corrupt alignment.
func Resolve(path string) Info {
	info, err := probe(path)
	if err != nil {
		slog.Warn("volume geometry query failed, using defaults",
			"path", path,
			"sector_size", DefaultSectorSize,
			"cluster_size", DefaultClusterSize,
			"error", err)
		return Info{SectorSize: DefaultSectorSize, ClusterSize: DefaultClusterSize}
	}

	if info.SectorSize == 0 {
		slog.Warn("volume reported zero sector size, using default",
			"path", path, "sector_size", DefaultSectorSize)
		info.SectorSize = DefaultSectorSize
	}
	if info.ClusterSize == 0 {
		info.ClusterSize = info.SectorSize
	}
	if info.ClusterSize < info.SectorSize {
		// A cluster can never be finer-grained than the device sector.
		info.ClusterSize = info.SectorSize
	}
	return info
}
