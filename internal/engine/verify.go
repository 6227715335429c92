package engine

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// hashFile computes the BLAKE3 hash of the file at path, returning the
// hex-encoded digest.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyAgainstSource digests the finished destination and the live
// source. The destination digest is returned even on mismatch so the
// caller can report both sides.
func verifyAgainstSource(dst, src string) (string, error) {
	dstDigest, err := hashFile(dst)
	if err != nil {
		return "", &IOError{Op: "verify destination", Err: err}
	}
	srcDigest, err := hashFile(src)
	if err != nil {
		return dstDigest, &IOError{Op: "verify source", Err: err}
	}
	if dstDigest != srcDigest {
		return dstDigest, &VerifyError{Path: dst, SourceDigest: srcDigest, DestDigest: dstDigest}
	}
	return dstDigest, nil
}
