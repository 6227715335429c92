// Package extent maps a file's logical byte range onto the physical
// cluster space of its volume. An extent is a contiguous run of virtual
// clusters (file-relative) backed either by a contiguous run of logical
// clusters (volume-relative) or by nothing at all, for sparse files.
package extent

import "fmt"

// SparseLCN marks an unallocated run. NTFS retrieval pointers report
// holes as an all-ones cluster number; runs the enumerator finds mapped
// beyond the volume's cluster count are normalized to the same sentinel.
const SparseLCN = ^uint64(0)

// Extent is one run of a file's extent map. Runs are contiguous: each
// extent starts where the previous one ended.
type Extent struct {
	StartVCN uint64
	Clusters uint64
	LCN      uint64
}

// IsSparse reports whether the run has no physical allocation.
func (e Extent) IsSparse() bool { return e.LCN == SparseLCN }

// Bytes returns the run's cluster-granular length.
func (e Extent) Bytes(clusterSize uint32) int64 {
	return int64(e.Clusters) * int64(clusterSize)
}

// Mapping is one (NextVCN, LCN) pair as the filesystem query returns it:
// the run covers [previous NextVCN, NextVCN) and is allocated at LCN.
type Mapping struct {
	NextVCN uint64
	LCN     uint64
}

// Batch is the tagged result of one extent query. More reports that the
// query could not return the full map and the caller should query again
// starting at the last NextVCN.
type Batch struct {
	Mappings []Mapping
	More     bool
}

// Querier is the filesystem extent-map primitive. Query returns the runs
// at and after startVCN; an empty batch with More unset means the map
// ends before startVCN.
type Querier interface {
	Query(startVCN uint64) (Batch, error)
}

// Clusters returns the cluster count covering size bytes.
func Clusters(size int64, clusterSize uint32) uint64 {
	if size <= 0 {
		return 0
	}
	cs := int64(clusterSize)
	return uint64((size + cs - 1) / cs)
}

// Enumerate assembles the full extent map for a file of fileSize bytes,
// paging through the querier until the map covers every cluster.
// volumeClusters, when nonzero, bounds physical cluster numbers: a run
// mapped at or beyond it cannot be read from the device and is recorded
// as sparse.
func Enumerate(q Querier, clusterSize uint32, fileSize int64, volumeClusters uint64) ([]Extent, error) {
	need := Clusters(fileSize, clusterSize)
	if need == 0 {
		return nil, nil
	}

	extents := make([]Extent, 0, 8)
	vcn := uint64(0)
	for vcn < need {
		batch, err := q.Query(vcn)
		if err != nil {
			return nil, fmt.Errorf("query extents at vcn %d: %w", vcn, err)
		}
		if len(batch.Mappings) == 0 {
			if batch.More {
				return nil, fmt.Errorf("extent query at vcn %d made no progress", vcn)
			}
			break
		}

		for _, m := range batch.Mappings {
			if m.NextVCN <= vcn {
				return nil, fmt.Errorf("extent map not ascending at vcn %d (next %d)", vcn, m.NextVCN)
			}
			run := Extent{StartVCN: vcn, Clusters: m.NextVCN - vcn, LCN: m.LCN}
			if run.LCN != SparseLCN && volumeClusters != 0 && run.LCN+run.Clusters > volumeClusters {
				// Mapped past the end of the volume: unreadable, treat as a hole.
				run.LCN = SparseLCN
			}
			extents = append(extents, run)
			vcn = m.NextVCN
		}

		if !batch.More {
			break
		}
	}

	if vcn < need {
		return nil, fmt.Errorf("extent map covers %d of %d clusters", vcn, need)
	}
	return extents, nil
}
