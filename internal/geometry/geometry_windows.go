//go:build windows

package geometry

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

const ioctlDiskGetDriveGeometry = 0x00070000

// diskGeometry mirrors the DISK_GEOMETRY structure returned by
// IOCTL_DISK_GET_DRIVE_GEOMETRY.
type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

// probe queries geometry on Windows: cluster size from the volume's
// allocation parameters, sector size from the device itself when it
// answers, otherwise from the same volume query.
func probe(path string) (Info, error) {
	root := volumeRoot(path)

	rootPtr, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return Info{}, err
	}

	var sectorsPerCluster, bytesPerSector, freeClusters, totalClusters uint32
	err = windows.GetDiskFreeSpace(rootPtr, &sectorsPerCluster, &bytesPerSector, &freeClusters, &totalClusters)
	if err != nil {
		return Info{}, fmt.Errorf("query volume %s: %w", root, err)
	}

	info := Info{
		SectorSize:  bytesPerSector,
		ClusterSize: bytesPerSector * sectorsPerCluster,
	}

	// Prefer the native sector size reported by the device: 512-emulation
	// drives advertise 512 through the volume query but need 4096-aligned
	// unbuffered reads.
	if native, ok := deviceSectorSize(root); ok && native > info.SectorSize {
		info.SectorSize = native
	}
	return info, nil
}

func deviceSectorSize(root string) (uint32, bool) {
	device := `\\.\` + filepath.VolumeName(root)
	devPtr, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return 0, false
	}

	h, err := windows.CreateFile(devPtr, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil,
		windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return 0, false
	}
	defer windows.CloseHandle(h)

	var geo diskGeometry
	var returned uint32
	err = windows.DeviceIoControl(h, ioctlDiskGetDriveGeometry, nil, 0,
		(*byte)(unsafe.Pointer(&geo)), uint32(unsafe.Sizeof(geo)), &returned, nil)
	if err != nil || geo.BytesPerSector == 0 {
		return 0, false
	}
	return geo.BytesPerSector, true
}

func volumeRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if vol := filepath.VolumeName(abs); vol != "" {
		return vol + `\`
	}
	return `C:\`
}
