//go:build windows

package snapshot

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// VSS drives the Windows Volume Shadow Copy service through its WMI
// surface. The shadow device it returns reads like a volume root, so the
// rest of the engine never knows it is working against a snapshot.
type VSS struct{}

var (
	shadowIDRe  = regexp.MustCompile(`ShadowID = "(\{[0-9A-Fa-f-]+\})"`)
	deviceObjRe = regexp.MustCompile(`DeviceObject=(\S+)`)
)

func (VSS) Create(ctx context.Context, volumeRoot string) (*Handle, error) {
	volume := strings.TrimSuffix(volumeRoot, `\`) + `\`

	out, err := exec.CommandContext(ctx, "wmic", "shadowcopy", "call", "create",
		fmt.Sprintf("Volume=%s", volume)).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("create shadow copy of %s: %w: %s", volume, err, strings.TrimSpace(string(out)))
	}

	m := shadowIDRe.FindSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("create shadow copy of %s: no shadow ID in response: %s", volume, strings.TrimSpace(string(out)))
	}
	id := string(m[1])

	device, err := deviceObject(ctx, id)
	if err != nil {
		// The shadow exists but is unusable; tear it down rather than leak it.
		_ = remove(context.WithoutCancel(ctx), id)
		return nil, err
	}

	return &Handle{
		ID:         id,
		DevicePath: device,
		VolumeRoot: volumeRoot,
	}, nil
}

func (VSS) Remove(ctx context.Context, h *Handle) error {
	if h == nil || h.live {
		return nil
	}
	return remove(ctx, h.ID)
}

// deviceObject resolves a shadow ID to its \\?\GLOBALROOT\Device\... path.
func deviceObject(ctx context.Context, id string) (string, error) {
	out, err := exec.CommandContext(ctx, "wmic", "shadowcopy",
		"where", fmt.Sprintf("ID='%s'", id), "get", "DeviceObject", "/value").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("resolve shadow %s device: %w", id, err)
	}
	m := deviceObjRe.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("resolve shadow %s device: no DeviceObject in response", id)
	}
	return strings.TrimSpace(string(m[1])), nil
}

func remove(ctx context.Context, id string) error {
	out, err := exec.CommandContext(ctx, "vssadmin", "delete", "shadows",
		fmt.Sprintf("/shadow=%s", id), "/quiet").CombinedOutput()
	if err != nil {
		return fmt.Errorf("delete shadow %s: %w: %s", id, err, strings.TrimSpace(string(out)))
	}
	return nil
}
