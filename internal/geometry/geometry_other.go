//go:build !linux && !darwin && !windows

package geometry

import "errors"

func probe(string) (Info, error) {
	return Info{}, errors.New("no geometry query on this platform")
}
