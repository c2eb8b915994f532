package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how a snapshot body is compressed on disk.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a configured compression name. An empty name
// selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "":
		return CompressionZstd, nil
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown compression %q (want none, lz4 or zstd)", name)
	}
}

// Encoded snapshots start with a fixed header:
//
//	magic "WSS" | version byte | compression tag byte | uvarint body length
//
// followed by the (possibly compressed) CBOR body. The length is the
// uncompressed size, which lz4 block decoding needs.
var magic = [3]byte{'W', 'S', 'S'}

const formatVersion = 1

// maxSnapshotSize bounds the uncompressed body a header may announce.
const maxSnapshotSize = 256 << 20

// lz4 cannot expand a block by more than this factor.
const lz4MaxRatio = 255

const (
	tagNone byte = 0
	tagLZ4  byte = 1
	tagZstd byte = 2
)

var (
	// ErrCorrupt is returned when stored bytes are not a snapshot this
	// build can read.
	ErrCorrupt = errors.New("corrupt snapshot")

	errIncompressible = errors.New("incompressible")
)

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("persist: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("persist: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("persist: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSnapshotSize))
	if err != nil {
		panic("persist: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode serializes a snapshot. When the requested compression does not
// shrink the body it is stored uncompressed.
func Encode(snap *Snapshot, compression Compression) ([]byte, error) {
	body, err := encMode.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	tag := tagNone
	payload := body
	switch compression {
	case CompressionLZ4:
		if compressed, err := compressLZ4(body); err == nil {
			tag, payload = tagLZ4, compressed
		} else if !errors.Is(err, errIncompressible) {
			return nil, err
		}
	case CompressionZstd:
		if compressed := zstdEncoder.EncodeAll(body, nil); len(compressed) < len(body) {
			tag, payload = tagZstd, compressed
		}
	case CompressionNone, "":
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}

	out := make([]byte, 0, len(magic)+2+binary.MaxVarintLen64+len(payload))
	out = append(out, magic[:]...)
	out = append(out, formatVersion, tag)
	out = binary.AppendUvarint(out, uint64(len(body)))
	return append(out, payload...), nil
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < len(magic)+2 || [3]byte(data[:3]) != magic {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	if data[3] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, data[3])
	}
	tag := data[4]
	size, n := binary.Uvarint(data[5:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad length", ErrCorrupt)
	}
	payload := data[5+n:]
	if size > maxSnapshotSize {
		return nil, fmt.Errorf("%w: body length %d exceeds limit", ErrCorrupt, size)
	}

	var body []byte
	switch tag {
	case tagNone:
		body = payload
	case tagLZ4:
		if size > uint64(len(payload))*lz4MaxRatio {
			return nil, fmt.Errorf("%w: lz4: body length %d too large for %d byte payload", ErrCorrupt, size, len(payload))
		}
		body = make([]byte, size)
		read, err := lz4.UncompressBlock(payload, body)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		body = body[:read]
	case tagZstd:
		var err error
		body, err = zstdDecoder.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown compression tag %d", ErrCorrupt, tag)
	}
	if uint64(len(body)) != size {
		return nil, fmt.Errorf("%w: body is %d bytes, header says %d", ErrCorrupt, len(body), size)
	}

	var snap Snapshot
	if err := decMode.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &snap, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return dst[:written], nil
}
