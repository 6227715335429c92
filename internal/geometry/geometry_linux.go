//go:build linux

package geometry

import "golang.org/x/sys/unix"

// probe queries geometry on Linux. A block-device root answers BLKSSZGET
// directly; for anything else the filesystem block size stands in for the
// cluster size and bounds the sector size from above.
func probe(path string) (Info, error) {
	if sector, ok := blockDeviceSectorSize(path); ok {
		return Info{SectorSize: sector, ClusterSize: sector}, nil
	}

	var sfs unix.Statfs_t
	if err := unix.Statfs(path, &sfs); err != nil {
		return Info{}, err
	}

	cluster := uint32(sfs.Bsize)
	sector := uint32(DefaultSectorSize)
	if cluster != 0 && cluster < sector {
		sector = cluster
	}
	return Info{SectorSize: sector, ClusterSize: cluster}, nil
}

func blockDeviceSectorSize(path string) (uint32, bool) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return 0, false
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil || st.Mode&unix.S_IFMT != unix.S_IFBLK {
		return 0, false
	}

	sector, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil || sector <= 0 {
		return 0, false
	}
	return uint32(sector), true
}
