package bdiff

import (
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// blockDigest computes the 16-byte BLAKE2b digest of a block.
func blockDigest(block []byte) (d [blockDigestLen]byte) {
	h, _ := blake2b.New(blockDigestLen, nil)
	h.Write(block)
	copy(d[:], h.Sum(nil))
	return d
}

// Signature reads basis to end-of-stream and writes its signature to out:
// the stream header followed by one 16-byte digest per block of blockSize
// bytes (the final block may be shorter). The signature can be matched
// against any number of candidate new files by Delta.
func Signature(basis io.Reader, out io.Writer, blockSize uint32) error {
	if err := writeHeader(out, kindSignature, blockSize); err != nil {
		return err
	}

	blocks := newBlockReader(basis, blockSize)
	count := 0
	for {
		block, err := blocks.next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		d := blockDigest(block)
		if _, err := out.Write(d[:]); err != nil {
			return err
		}
		count++
	}

	log.Debugf("signature: %d blocks of %d bytes", count, blockSize)
	return nil
}
