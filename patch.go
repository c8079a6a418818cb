package bdiff

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Patch reconstructs the new file from basis and a delta stream, writing it
// to out. basis must allow random access for the duration of the call; out
// is written strictly sequentially.
//
// The reconstruction is only valid if Patch returns nil: on ErrHashMismatch
// the full output may already have been written but must be discarded.
func Patch(basis io.ReadSeeker, delta io.Reader, out io.Writer) error {
	blockSize, err := readHeader(delta, kindDelta, ErrInvalidDeltaFormat)
	if err != nil {
		return err
	}

	fileSum := sha256.New()
	tag := make([]byte, 1)
	buf := make([]byte, blockSize)

	for {
		if _, err := io.ReadFull(delta, tag); err == io.EOF || err == io.ErrUnexpectedEOF {
			return errors.Wrap(ErrTruncatedDeltaStream, "missing terminal checksum")
		} else if err != nil {
			return err
		}

		var data []byte
		switch tag[0] {
		case opCopy:
			var blockIdx uint32
			if err := readField(delta, &blockIdx); err != nil {
				return err
			}
			if _, err := basis.Seek(int64(blockIdx)*int64(blockSize), io.SeekStart); err != nil {
				return err
			}
			// the final basis block may be short
			n, err := io.ReadFull(basis, buf)
			if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
				return errors.Wrapf(ErrMalformedDeltaStream, "copy of block %d beyond basis end", blockIdx)
			} else if err != nil && err != io.ErrUnexpectedEOF {
				return err
			}
			data = buf[:n]

		case opLiteral:
			if _, err := io.ReadFull(delta, buf); err != nil {
				return truncated(err)
			}
			data = buf

		case opShortLiteral:
			var length uint32
			if err := readField(delta, &length); err != nil {
				return err
			}
			short := make([]byte, length)
			if _, err := io.ReadFull(delta, short); err != nil {
				return truncated(err)
			}
			data = short

		case opChecksum:
			target := make([]byte, fileDigestLen)
			if _, err := io.ReadFull(delta, target); err != nil {
				return truncated(err)
			}
			if !bytes.Equal(fileSum.Sum(nil), target) {
				return errors.Wrap(ErrHashMismatch, "reconstructed output is invalid")
			}
			return nil

		default:
			return errors.Wrapf(ErrMalformedDeltaStream, "unknown instruction tag %#x", tag[0])
		}

		if _, err := out.Write(data); err != nil {
			return err
		}
		fileSum.Write(data)
	}
}

// readField reads a big-endian instruction field from the delta stream,
// mapping a mid-field end-of-stream to ErrTruncatedDeltaStream.
func readField(delta io.Reader, v interface{}) error {
	if err := binary.Read(delta, binary.BigEndian, v); err != nil {
		return truncated(err)
	}
	return nil
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrap(ErrTruncatedDeltaStream, "mid-instruction end of stream")
	}
	return err
}
