package probe

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"mediavault/internal/services"
)

// DefaultFingerprintChunkBytes is the read buffer size used when hashing.
const DefaultFingerprintChunkBytes = 4 * 1024 * 1024

// Fingerprint computes the MD5 digest of the file at path, reading in
// fixed-size chunks so large files never load into memory at once. An empty
// file yields the MD5 of the empty string.
func Fingerprint(path string, chunkBytes int) (string, error) {
	if chunkBytes <= 0 {
		chunkBytes = DefaultFingerprintChunkBytes
	}

	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "probe", "fingerprint", "open "+path, err)
	}
	defer file.Close()

	hasher := md5.New()
	buf := make([]byte, chunkBytes)
	if _, err := io.CopyBuffer(hasher, file, buf); err != nil {
		return "", services.Wrap(services.ErrIO, "probe", "fingerprint", "read "+path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
