// Package engine performs extent-based raw file duplication: it clones a
// file byte-for-byte by reading the storage medium at cluster level
// instead of through the normal file-read path, optionally against a
// point-in-time snapshot of the source volume.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/mwaldron/vclone/internal/event"
	"github.com/mwaldron/vclone/internal/extent"
	"github.com/mwaldron/vclone/internal/geometry"
	"github.com/mwaldron/vclone/internal/snapshot"
	"github.com/mwaldron/vclone/internal/stats"
)

// Buffer size bounds. The buffer must additionally be a multiple of the
// volume's sector size so unbuffered device reads stay aligned.
const (
	DefaultBufferSize = 64 * 1024
	MinBufferSize     = 4 * 1024
	MaxBufferSize     = 40 * 1024 * 1024
)

// Options controls one Copy call.
type Options struct {
	Overwrite   bool // replace an existing destination
	UseSnapshot bool // freeze the source volume for the duration
	BufferSize  int  // read chunk size; DefaultBufferSize when zero
	Verify      bool // digest destination against the live source afterwards

	Provider snapshot.Provider  // nil: platform default
	Events   chan<- event.Event // optional, never blocked on
	Stats    *stats.Collector   // optional
}

// Summary reports a finished transfer.
type Summary struct {
	BytesCopied int64
	SparseBytes int64 // bytes satisfied by holes, no device read
	Extents     int
	Elapsed     time.Duration
	Digest      string // destination BLAKE3, when verification ran
	TeardownErr error  // snapshot removal failure, success notwithstanding
}

// Copy duplicates src into dst through the volume's extent map. Validation
// failures surface before any snapshot is created; once a snapshot exists
// its teardown runs on every exit path, cancellation included.
func Copy(ctx context.Context, src, dst string, opts Options) (sum Summary, err error) {
	start := time.Now()
	if opts.BufferSize == 0 {
		opts.BufferSize = DefaultBufferSize
	}

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return sum, &ValidationError{Reason: fmt.Sprintf("source %s: %v", src, err)}
	}
	srcInfo, err := os.Lstat(absSrc)
	if err != nil {
		return sum, &ValidationError{Reason: fmt.Sprintf("source %s: %v", src, err)}
	}
	if !srcInfo.Mode().IsRegular() {
		return sum, &ValidationError{Reason: fmt.Sprintf("source %s is not a regular file", src)}
	}

	geom := geometry.Resolve(absSrc)
	if verr := validateBufferSize(opts.BufferSize, geom.SectorSize); verr != nil {
		return sum, verr
	}

	if !opts.Overwrite {
		if _, serr := os.Lstat(dst); serr == nil {
			return sum, &ValidationError{Reason: fmt.Sprintf("destination %s already exists", dst)}
		} else if !errors.Is(serr, fs.ErrNotExist) {
			return sum, &ValidationError{Reason: fmt.Sprintf("destination %s: %v", dst, serr)}
		}
	}

	prov := providerFor(opts)
	handle, serr := prov.Create(ctx, volumeRootOf(absSrc))
	if serr != nil {
		return sum, &SnapshotError{Op: "create", Err: serr}
	}
	defer func() {
		// Teardown runs unconditionally, with cancellation stripped so an
		// aborted transfer still releases its snapshot.
		if rerr := prov.Remove(context.WithoutCancel(ctx), handle); rerr != nil {
			slog.Warn("snapshot teardown failed", "id", handle.ID, "error", rerr)
			sum.TeardownErr = &SnapshotError{Op: "remove", Err: rerr}
		} else if !handle.Live() {
			event.Emit(opts.Events, event.Event{Type: event.SnapshotRemoved, Path: src})
		}
		sum.Elapsed = time.Since(start)
	}()
	if !handle.Live() {
		slog.Info("snapshot created", "id", handle.ID, "device", handle.DevicePath)
		event.Emit(opts.Events, event.Event{Type: event.SnapshotCreated, Path: src})
	}

	frozen, err := handle.MapPath(absSrc)
	if err != nil {
		return sum, &SnapshotError{Op: "map", Err: err}
	}

	srcF, err := os.Open(frozen)
	if err != nil {
		return sum, &IOError{Op: "open source", Err: err}
	}
	defer srcF.Close()

	// Logical length from the frozen metadata, so the clamp below agrees
	// with the extent map it trims.
	fi, err := srcF.Stat()
	if err != nil {
		return sum, &IOError{Op: "stat source", Err: err}
	}
	size := fi.Size()

	if opts.Stats != nil {
		opts.Stats.SetTotal(size)
	}
	event.Emit(opts.Events, event.Event{Type: event.TransferStarted, Path: src, Total: size})

	flags := os.O_WRONLY | os.O_CREATE
	if opts.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	dstF, err := os.OpenFile(dst, flags, srcInfo.Mode().Perm())
	if err != nil {
		return sum, &IOError{Op: "create destination", Err: err}
	}
	defer dstF.Close()

	if size == 0 {
		// Nothing to enumerate or read.
		if cerr := dstF.Close(); cerr != nil {
			return sum, &IOError{Op: "close destination", Err: cerr}
		}
		event.Emit(opts.Events, event.Event{Type: event.TransferCompleted, Path: src})
		return sum, nil
	}

	dev, querier, volClusters, devClose, err := openDevice(handle, frozen, srcF, size, geom)
	if err != nil {
		return sum, &IOError{Op: "open volume", Err: err}
	}
	if devClose != nil {
		defer devClose()
	}

	extents, err := extent.Enumerate(querier, geom.ClusterSize, size, volClusters)
	if err != nil {
		qerr := &ExtentQueryError{Err: err}
		event.Emit(opts.Events, event.Event{Type: event.TransferFailed, Path: src, Error: qerr})
		return sum, qerr
	}
	sum.Extents = len(extents)

	if err := transfer(ctx, dev, dstF, extents, geom, size, opts, &sum); err != nil {
		event.Emit(opts.Events, event.Event{Type: event.TransferFailed, Path: src, Error: err})
		return sum, err
	}

	// Exact logical length, never the cluster-rounded allocated length:
	// trailing partial-cluster padding must not leak into the output.
	if err := dstF.Truncate(size); err != nil {
		return sum, &IOError{Op: "truncate destination", Err: err}
	}
	if err := dstF.Close(); err != nil {
		return sum, &IOError{Op: "close destination", Err: err}
	}

	if sum.BytesCopied != size {
		return sum, &IOError{Op: "transfer", Err: fmt.Errorf("copied %d of %d bytes", sum.BytesCopied, size)}
	}
	event.Emit(opts.Events, event.Event{Type: event.TransferCompleted, Path: src, Bytes: size, Total: size})

	if opts.Verify {
		digest, verr := verifyAgainstSource(dst, absSrc)
		sum.Digest = digest
		if verr != nil {
			return sum, verr
		}
	}
	return sum, nil
}

// transfer drives the extent loop: holes advance the logical cursor for
// free, allocated runs are read from the device in sector-aligned chunks.
func transfer(ctx context.Context, dev io.ReaderAt, dst *os.File, extents []extent.Extent,
	geom geometry.Info, size int64, opts Options, sum *Summary) error {
	cs := int64(geom.ClusterSize)
	buf := alignedBuffer(opts.BufferSize, geom.SectorSize)

	for _, ext := range extents {
		logicalStart := int64(ext.StartVCN) * cs
		if logicalStart >= size {
			// Cluster-granular allocation overshoots the logical end.
			break
		}
		remain := size - logicalStart
		if span := ext.Bytes(geom.ClusterSize); span < remain {
			remain = span
		}

		if ext.IsSparse() {
			// Nothing is read or written; the final truncate materializes
			// the hole as zeroes of identical length.
			sum.BytesCopied += remain
			sum.SparseBytes += remain
			if opts.Stats != nil {
				opts.Stats.AddCopied(remain)
				opts.Stats.AddSparse(remain)
			}
			event.Emit(opts.Events, event.Event{Type: event.TransferProgress, Bytes: sum.BytesCopied, Total: size})
			continue
		}

		devOff := int64(ext.LCN) * cs
		logOff := logicalStart
		alloc := ext.Bytes(geom.ClusterSize)
		for remain > 0 {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}

			readLen := int64(len(buf))
			if readLen > alloc {
				readLen = alloc
			}
			// Buffer and allocated run are both sector multiples, so
			// readLen stays aligned for an unbuffered device handle.
			n, rerr := dev.ReadAt(buf[:readLen], devOff)
			if n == 0 {
				if rerr == nil || errors.Is(rerr, io.EOF) {
					return &IOError{Op: "read volume", Err: fmt.Errorf("unexpected end of device at offset %d", devOff)}
				}
				return &IOError{Op: "read volume", Err: rerr}
			}

			keep := int64(n)
			if keep > remain {
				keep = remain
			}
			if _, werr := dst.WriteAt(buf[:keep], logOff); werr != nil {
				return &IOError{Op: "write destination", Err: werr}
			}

			devOff += int64(n)
			logOff += keep
			alloc -= int64(n)
			remain -= keep
			sum.BytesCopied += keep
			if opts.Stats != nil {
				opts.Stats.AddCopied(keep)
			}
			event.Emit(opts.Events, event.Event{Type: event.TransferProgress, Bytes: sum.BytesCopied, Total: size})
		}
	}
	return nil
}

// alignedBuffer returns a buffer of the given size whose backing array
// starts on a sector boundary. Unbuffered device handles require the
// memory address to be aligned, not just the length and offset.
func alignedBuffer(size int, sectorSize uint32) []byte {
	align := int(sectorSize)
	raw := make([]byte, size+align)
	off := int(uintptr(unsafe.Pointer(&raw[0])) % uintptr(align))
	if off != 0 {
		off = align - off
	}
	return raw[off : off+size]
}

func validateBufferSize(n int, sectorSize uint32) error {
	if n < MinBufferSize || n > MaxBufferSize {
		return &ValidationError{Reason: fmt.Sprintf("buffer size %d outside %d..%d", n, MinBufferSize, MaxBufferSize)}
	}
	if n%int(sectorSize) != 0 {
		return &ValidationError{Reason: fmt.Sprintf("buffer size %d is not a multiple of the %d-byte sector", n, sectorSize)}
	}
	return nil
}

func providerFor(opts Options) snapshot.Provider {
	if !opts.UseSnapshot {
		return snapshot.Passthrough{}
	}
	if opts.Provider != nil {
		return opts.Provider
	}
	return snapshot.Default()
}

func volumeRootOf(abs string) string {
	if vol := filepath.VolumeName(abs); vol != "" {
		return vol + `\`
	}
	return "/"
}
