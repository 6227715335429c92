//go:build windows

package extent

import (
	"encoding/binary"
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

const fsctlGetRetrievalPointers = 0x00090073

// Output buffer capacity in (NextVCN, LCN) pairs. Fragmented files page
// through ERROR_MORE_DATA.
const retrievalPairs = 512

// RetrievalQuerier reads a file's extent map through
// FSCTL_GET_RETRIEVAL_POINTERS. The handle must be open with read access
// on an NTFS-like volume; holes come back with an all-ones LCN.
type RetrievalQuerier struct {
	h windows.Handle
}

// NewRetrievalQuerier queries the extent map of the file behind h.
func NewRetrievalQuerier(h windows.Handle) *RetrievalQuerier {
	return &RetrievalQuerier{h: h}
}

func (q *RetrievalQuerier) Query(startVCN uint64) (Batch, error) {
	// STARTING_VCN_INPUT_BUFFER is a single LARGE_INTEGER.
	in := int64(startVCN)

	// RETRIEVAL_POINTERS_BUFFER: ExtentCount u32, pad, StartingVcn i64,
	// then ExtentCount pairs of (NextVcn i64, Lcn i64).
	out := make([]byte, 16+retrievalPairs*16)

	var returned uint32
	err := windows.DeviceIoControl(q.h, fsctlGetRetrievalPointers,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
		&out[0], uint32(len(out)), &returned, nil)

	more := false
	switch {
	case err == nil:
	case errors.Is(err, windows.ERROR_MORE_DATA):
		more = true
	case errors.Is(err, windows.ERROR_HANDLE_EOF):
		// Past the last run; the normal termination for resident or
		// fully-walked files.
		return Batch{}, nil
	default:
		return Batch{}, err
	}

	count := binary.LittleEndian.Uint32(out[0:4])
	if count > retrievalPairs {
		count = retrievalPairs
	}

	b := Batch{Mappings: make([]Mapping, 0, count), More: more}
	for i := uint32(0); i < count; i++ {
		rec := out[16+i*16:]
		next := binary.LittleEndian.Uint64(rec[0:8])
		lcn := binary.LittleEndian.Uint64(rec[8:16])
		// An LCN of -1 is the hole sentinel; the two's-complement bits
		// already equal SparseLCN.
		b.Mappings = append(b.Mappings, Mapping{NextVCN: next, LCN: lcn})
	}
	return b, nil
}
