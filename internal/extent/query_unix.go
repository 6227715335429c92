//go:build linux || darwin

package extent

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Runs returned per query. Small enough that multi-batch pagination is
// exercised by ordinary sparse files.
const batchRuns = 16

// SeekHoleQuerier maps a file's layout through SEEK_DATA/SEEK_HOLE,
// presenting the file itself as the volume: data runs are identity-mapped
// (LCN == VCN) and holes are sparse. Filesystems without sparse support
// answer EINVAL, which collapses the remainder into one data run.
type SeekHoleQuerier struct {
	f           *os.File
	size        int64
	clusterSize uint32
}

// NewSeekHoleQuerier queries the extent map of f, whose logical length is
// size bytes.
func NewSeekHoleQuerier(f *os.File, size int64, clusterSize uint32) *SeekHoleQuerier {
	return &SeekHoleQuerier{f: f, size: size, clusterSize: clusterSize}
}

func (q *SeekHoleQuerier) Query(startVCN uint64) (Batch, error) {
	cs := int64(q.clusterSize)
	need := Clusters(q.size, q.clusterSize)
	offset := int64(startVCN) * cs
	if offset >= q.size {
		return Batch{}, nil
	}

	fd := int(q.f.Fd())
	var b Batch
	for len(b.Mappings) < batchRuns && offset < q.size {
		dataStart, err := unix.Seek(fd, offset, unix.SEEK_DATA)
		if err != nil {
			switch err {
			case syscall.ENXIO:
				// Rest of the file is a hole.
				b.Mappings = append(b.Mappings, Mapping{NextVCN: need, LCN: SparseLCN})
				offset = q.size
			case syscall.EINVAL:
				// No sparse support: the remainder is one data run.
				b.Mappings = append(b.Mappings, Mapping{NextVCN: need, LCN: uint64(offset / cs)})
				offset = q.size
			default:
				return Batch{}, err
			}
			break
		}

		// Data/hole transitions sit on filesystem block boundaries, but
		// keep the map cluster-granular regardless.
		dataStart -= dataStart % cs
		if dataStart < offset {
			dataStart = offset
		}
		if dataStart >= q.size {
			b.Mappings = append(b.Mappings, Mapping{NextVCN: need, LCN: SparseLCN})
			offset = q.size
			break
		}

		if dataStart > offset {
			b.Mappings = append(b.Mappings, Mapping{NextVCN: uint64(dataStart / cs), LCN: SparseLCN})
		}

		holeStart, err := unix.Seek(fd, dataStart, unix.SEEK_HOLE)
		if err != nil {
			switch err {
			case syscall.ENXIO, syscall.EINVAL:
				holeStart = q.size
			default:
				return Batch{}, err
			}
		}
		if holeStart > q.size {
			holeStart = q.size
		}

		endVCN := Clusters(holeStart, q.clusterSize)
		if endVCN > need {
			endVCN = need
		}
		b.Mappings = append(b.Mappings, Mapping{NextVCN: endVCN, LCN: uint64(dataStart / cs)})
		offset = int64(endVCN) * cs
	}

	b.More = offset < q.size
	return b, nil
}
