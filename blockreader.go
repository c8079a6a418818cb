package bdiff

import (
	"io"

	"github.com/pkg/errors"
)

// maxShortReads bounds how many refill reads next issues for a single block
// before giving up on the source.
const maxShortReads = 10

// blockReader chunks a stream into blocks of a fixed size. Every block is
// exactly size bytes except the last, which may be shorter. A read returning
// zero bytes at a block boundary ends the sequence.
type blockReader struct {
	src  io.Reader
	size uint32
}

func newBlockReader(src io.Reader, size uint32) *blockReader {
	return &blockReader{src: src, size: size}
}

// next returns the next block, or io.EOF once the source is exhausted. The
// returned slice is owned by the caller. If the source returns a partial
// block, next keeps reading to fill it out; a source that stays short past
// the retry budget fails with ErrIncompleteBlockRead.
func (br *blockReader) next() ([]byte, error) {
	buf := make([]byte, br.size)
	n, err := br.src.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}
	tries := 0
	for n < len(buf) {
		m, err := br.src.Read(buf[n:])
		if err != nil && err != io.EOF {
			return nil, err
		}
		if m == 0 {
			// source exhausted: final, shorter block
			return buf[:n], nil
		}
		n += m
		tries++
		if tries > maxShortReads {
			return nil, errors.Wrapf(ErrIncompleteBlockRead, "%d short reads while filling a %d byte block", tries, br.size)
		}
	}
	return buf, nil
}
