// Package snapshot manages point-in-time volume snapshots around a
// transfer. The engine only depends on the Provider interface; the actual
// snapshot service (VSS on Windows) is an external collaborator.
package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Handle identifies one live snapshot and where its frozen content can be
// read. A handle is owned by exactly one transfer: it is created
// immediately before extent enumeration and destroyed on every exit path.
type Handle struct {
	ID         string
	DevicePath string // root under which the frozen tree is exposed
	VolumeRoot string // volume the snapshot was taken of
	live       bool   // passthrough: DevicePath is the live volume
}

// Live reports whether the handle exposes the live volume rather than a
// frozen view.
func (h *Handle) Live() bool { return h.live }

// MapPath rewrites path, which must live under the handle's volume root,
// into the snapshot's device tree.
func (h *Handle) MapPath(path string) (string, error) {
	rel, err := filepath.Rel(h.VolumeRoot, path)
	if err != nil {
		return "", fmt.Errorf("map %s into snapshot: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside volume %s", path, h.VolumeRoot)
	}
	return filepath.Join(h.DevicePath, rel), nil
}

// Provider creates and destroys volume snapshots.
type Provider interface {
	Create(ctx context.Context, volumeRoot string) (*Handle, error)
	Remove(ctx context.Context, h *Handle) error
}

// Passthrough satisfies Provider without snapshotting: the handle's device
// path is the live volume root. Used when snapshotting is disabled or the
// platform has no snapshot service; source-in-use conflicts then become
// the caller's problem.
type Passthrough struct{}

func (Passthrough) Create(_ context.Context, volumeRoot string) (*Handle, error) {
	return &Handle{
		ID:         uuid.NewString(),
		DevicePath: volumeRoot,
		VolumeRoot: volumeRoot,
		live:       true,
	}, nil
}

func (Passthrough) Remove(context.Context, *Handle) error { return nil }
