package images

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"

	"gocv.io/x/gocv"
)

// ComputeMatChecksum hashes a Mat's geometry, type and pixels, so a stage that leaves its input
// untouched can be checked against the checksum taken before it ran.
//
// Arguments:
// - mat: The Mat to hash.
//
// Returns:
// - A hex-encoded MD5 checksum, or "empty" for an empty Mat.
//
// Example:
//
// ```go
//
//	before := ComputeMatChecksum(buf.Mat())
//	res, err := pipeline.Detect(buf)
//	// ComputeMatChecksum(buf.Mat()) == before
//
// ```
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(mat.Rows()))
	binary.LittleEndian.PutUint32(header[4:], uint32(mat.Cols()))
	binary.LittleEndian.PutUint32(header[8:], uint32(mat.Type()))

	hash := md5.New()
	hash.Write(header[:])
	hash.Write(mat.ToBytes())
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// Checksum returns ComputeMatChecksum of the buffer's Mat.
func (b *Buffer) Checksum() string {
	return ComputeMatChecksum(b.mat)
}
