//go:build windows

package engine

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"

	"github.com/mwaldron/vclone/internal/extent"
	"github.com/mwaldron/vclone/internal/geometry"
	"github.com/mwaldron/vclone/internal/snapshot"
)

// openDevice opens the volume (or shadow-copy device) behind the frozen
// source for unbuffered sequential reads, and wires the source handle to
// the NTFS retrieval-pointer querier.
func openDevice(handle *snapshot.Handle, _ string, f *os.File, _ int64,
	_ geometry.Info) (io.ReaderAt, extent.Querier, uint64, func() error, error) {
	devPath := rawDevicePath(handle)
	p, err := windows.UTF16PtrFromString(devPath)
	if err != nil {
		return nil, nil, 0, nil, err
	}

	h, err := windows.CreateFile(p, windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_NO_BUFFERING|windows.FILE_FLAG_SEQUENTIAL_SCAN, 0)
	if err != nil {
		return nil, nil, 0, nil, err
	}

	dev := os.NewFile(uintptr(h), devPath)
	q := extent.NewRetrievalQuerier(windows.Handle(f.Fd()))
	return dev, q, volumeClusterCount(handle.VolumeRoot), dev.Close, nil
}

// rawDevicePath maps a snapshot handle to the device to read clusters
// from: the shadow-copy device when frozen, \\.\X: when live.
func rawDevicePath(h *snapshot.Handle) string {
	if h.Live() {
		return `\\.\` + filepath.VolumeName(h.VolumeRoot)
	}
	return h.DevicePath
}

// volumeClusterCount bounds physical cluster numbers; zero when the
// volume will not say, which disables the bound check.
func volumeClusterCount(volumeRoot string) uint64 {
	rootPtr, err := windows.UTF16PtrFromString(volumeRoot)
	if err != nil {
		return 0
	}
	var sectorsPerCluster, bytesPerSector, freeClusters, totalClusters uint32
	if err := windows.GetDiskFreeSpace(rootPtr, &sectorsPerCluster, &bytesPerSector, &freeClusters, &totalClusters); err != nil {
		return 0
	}
	return uint64(totalClusters)
}
