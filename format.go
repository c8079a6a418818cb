package bdiff

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// FormatVersion is the stream format version this implementation reads and
// writes. Streams carrying any other version are rejected.
const FormatVersion uint32 = 1

// DefaultBlockSize is the block size used when the caller does not pick one.
const DefaultBlockSize uint32 = 32768

const (
	formatMagic   = "bdif"
	kindSignature = "sig"
	kindDelta     = "dlt"
)

// Instruction tag bytes in the delta stream.
const (
	opCopy         = 'C'
	opLiteral      = 'D'
	opShortLiteral = 'E'
	opChecksum     = 'H'
)

const (
	blockDigestLen = 16
	fileDigestLen  = 32
)

var (
	// ErrIncompleteBlockRead is returned when the underlying source keeps
	// delivering short reads past the retry budget.
	ErrIncompleteBlockRead = errors.New("incomplete block read from source")

	// ErrInvalidSignatureFormat is returned when a signature stream does not
	// start with the signature magic marker.
	ErrInvalidSignatureFormat = errors.New("invalid signature format")

	// ErrInvalidDeltaFormat is returned when a delta stream does not start
	// with the delta magic marker.
	ErrInvalidDeltaFormat = errors.New("invalid delta format")

	// ErrUnsupportedVersion is returned when a stream's format version is not
	// recognized by this implementation.
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// ErrMalformedDeltaStream is returned when a delta stream contains an
	// unknown instruction tag or a copy reference outside the basis file.
	ErrMalformedDeltaStream = errors.New("malformed delta stream")

	// ErrTruncatedDeltaStream is returned when a delta stream ends before its
	// terminal checksum instruction.
	ErrTruncatedDeltaStream = errors.New("truncated delta stream")

	// ErrHashMismatch is returned when the reconstructed file's checksum
	// disagrees with the checksum recorded in the delta. Output already
	// written must be discarded.
	ErrHashMismatch = errors.New("hash mismatch in reconstructed file")
)

// writeHeader writes the shared stream header: magic, stream kind, format
// version and block size, all big-endian.
func writeHeader(w io.Writer, kind string, blockSize uint32) error {
	if _, err := io.WriteString(w, formatMagic+kind); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, FormatVersion); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, blockSize)
}

// readHeader validates the magic and version of a stream header and returns
// the block size. A magic mismatch (including a stream too short to hold
// one) is reported as badFormat.
func readHeader(r io.Reader, kind string, badFormat error) (uint32, error) {
	tag := make([]byte, len(formatMagic)+len(kind))
	if _, err := io.ReadFull(r, tag); err != nil {
		return 0, errors.Wrap(badFormat, "short header")
	}
	if string(tag) != formatMagic+kind {
		return 0, errors.Wrapf(badFormat, "bad magic %q", tag)
	}
	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return 0, errors.Wrap(badFormat, "short header")
	}
	if version != FormatVersion {
		return 0, errors.Wrapf(ErrUnsupportedVersion, "stream version %d, this library reads v%d", version, FormatVersion)
	}
	var blockSize uint32
	if err := binary.Read(r, binary.BigEndian, &blockSize); err != nil {
		return 0, errors.Wrap(badFormat, "short header")
	}
	return blockSize, nil
}
