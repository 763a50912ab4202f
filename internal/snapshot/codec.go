// Package snapshot encodes whole sheets into a compact, checksummed binary
// form used by the workbook store and the CLI.
//
// An encoded snapshot is a fixed header followed by the payload:
//
//	magic "SHC1" | compression tag (1 byte) | uncompressed size (uint32, big endian) |
//	BLAKE3 digest of the uncompressed payload (32 bytes) | payload
//
// The payload is the CBOR encoding of a Snapshot using Core Deterministic
// Encoding, so the same sheet always produces the same digest.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var magic = [4]byte{'S', 'H', 'C', '1'}

const headerSize = len(magic) + 1 + 4 + DigestSize

// maxPayload bounds the uncompressed size accepted by Decode
const maxPayload = 256 << 20

var (
	// ErrFormat is returned for data that is not an encoded snapshot
	ErrFormat = errors.New("snapshot: invalid format")

	// ErrChecksum is returned when the payload does not match its digest
	ErrChecksum = errors.New("snapshot: checksum mismatch")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 24,
	}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// Header describes an encoded snapshot without decoding its payload
type Header struct {
	Compression CompressionTag
	Size        int
	Digest      Digest
}

// Encode serializes snap, compressing the payload with tag. when the
// payload does not shrink it is stored uncompressed and the header
// records CompressionNone.
func Encode(snap *Snapshot, tag CompressionTag) ([]byte, error) {
	payload, err := encMode.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("snapshot: payload of %d bytes exceeds limit", len(payload))
	}

	body, err := compress(payload, tag)
	if errors.Is(err, errIncompressible) {
		body, tag = payload, CompressionNone
	} else if err != nil {
		return nil, err
	}

	digest := Sum(payload)
	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	buf.Write(magic[:])
	buf.WriteByte(byte(tag))
	binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(digest[:])
	buf.Write(body)
	return buf.Bytes(), nil
}

// Inspect parses the header of an encoded snapshot
func Inspect(data []byte) (Header, error) {
	if len(data) < headerSize || !bytes.Equal(data[:len(magic)], magic[:]) {
		return Header{}, ErrFormat
	}
	h := Header{
		Compression: CompressionTag(data[len(magic)]),
		Size:        int(binary.BigEndian.Uint32(data[len(magic)+1:])),
	}
	if h.Size > maxPayload {
		return Header{}, fmt.Errorf("%w: payload size %d", ErrFormat, h.Size)
	}
	copy(h.Digest[:], data[len(magic)+5:headerSize])
	return h, nil
}

// Decode verifies and decodes an encoded snapshot
func Decode(data []byte) (*Snapshot, error) {
	h, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	payload, err := decompress(data[headerSize:], h.Compression, h.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if Sum(payload) != h.Digest {
		return nil, ErrChecksum
	}

	var snap Snapshot
	if err := decMode.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, snap.Version)
	}
	return &snap, nil
}
