//go:build windows

package snapshot

// Default returns the platform snapshot provider.
func Default() Provider { return &VSS{} }
