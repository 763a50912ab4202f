package snapshot

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// DigestSize is the length of a snapshot digest in bytes
const DigestSize = 32

// Digest is the keyed BLAKE3 hash of an uncompressed snapshot payload
type Digest [DigestSize]byte

// digestKey separates snapshot digests from any other BLAKE3 use. the
// bytes are the ASCII domain name, zero-padded to 32 bytes.
var digestKey = [32]byte{
	's', 'h', 'e', 'e', 't', 'c', 'a', 'l', 'c', '.', 's', 'n', 'a', 'p', 's', 'h',
	'o', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Sum computes the digest of payload
func Sum(payload []byte) Digest {
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		// only a key of the wrong length fails
		panic("snapshot: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}

// String returns the digest in hex
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
