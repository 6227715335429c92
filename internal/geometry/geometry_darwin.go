//go:build darwin

package geometry

import "golang.org/x/sys/unix"

func probe(path string) (Info, error) {
	var sfs unix.Statfs_t
	if err := unix.Statfs(path, &sfs); err != nil {
		return Info{}, err
	}

	cluster := sfs.Bsize
	sector := uint32(DefaultSectorSize)
	if cluster != 0 && cluster < sector {
		sector = cluster
	}
	return Info{SectorSize: sector, ClusterSize: cluster}, nil
}
