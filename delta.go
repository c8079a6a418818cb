package bdiff

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SignatureType is a basis-file signature loaded into memory: the block size
// the signature was built with and a lookup from block digest to basis block
// index. When the basis contains duplicate blocks the first occurrence wins;
// later indices are shadowed, which is fine since any one matching basis
// location reconstructs identical content.
type SignatureType struct {
	blockSize  uint32
	count      uint32
	hash2block map[[blockDigestLen]byte]uint32
}

// BlockSize returns the block size the signature was generated with.
func (sig *SignatureType) BlockSize() uint32 {
	return sig.blockSize
}

// Blocks returns the number of basis blocks described by the signature,
// counting duplicates.
func (sig *SignatureType) Blocks() int {
	return int(sig.count)
}

// ReadSignature parses a signature stream into a SignatureType usable by
// Delta. It fails with ErrInvalidSignatureFormat on a bad magic marker or a
// truncated digest, and ErrUnsupportedVersion on an unrecognized version.
func ReadSignature(sigIn io.Reader) (*SignatureType, error) {
	blockSize, err := readHeader(sigIn, kindSignature, ErrInvalidSignatureFormat)
	if err != nil {
		return nil, err
	}

	ret := &SignatureType{
		blockSize:  blockSize,
		hash2block: make(map[[blockDigestLen]byte]uint32),
	}

	var digest [blockDigestLen]byte
	for {
		if _, err := io.ReadFull(sigIn, digest[:]); err == io.EOF {
			break
		} else if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(ErrInvalidSignatureFormat, "truncated block digest")
		} else if err != nil {
			return nil, err
		}
		if _, ok := ret.hash2block[digest]; !ok {
			ret.hash2block[digest] = ret.count
		}
		ret.count++
	}

	return ret, nil
}

// Delta reads newFile to end-of-stream and writes to out a delta against
// sig: the stream header, one instruction per new-file block (copy a basis
// block, or carry the block as literal data), and a terminal SHA-256
// checksum of the whole new file.
func Delta(sig *SignatureType, newFile io.Reader, out io.Writer) error {
	if err := writeHeader(out, kindDelta, sig.blockSize); err != nil {
		return err
	}

	fileSum := sha256.New()
	blocks := newBlockReader(newFile, sig.blockSize)
	copies, literals := 0, 0

	for {
		block, err := blocks.next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		fileSum.Write(block)

		if blockIdx, ok := sig.hash2block[blockDigest(block)]; ok {
			copies++
			if _, err := out.Write([]byte{opCopy}); err != nil {
				return err
			}
			if err := binary.Write(out, binary.BigEndian, blockIdx); err != nil {
				return err
			}
			continue
		}

		literals++
		if uint32(len(block)) == sig.blockSize {
			if _, err := out.Write([]byte{opLiteral}); err != nil {
				return err
			}
		} else {
			if _, err := out.Write([]byte{opShortLiteral}); err != nil {
				return err
			}
			if err := binary.Write(out, binary.BigEndian, uint32(len(block))); err != nil {
				return err
			}
		}
		if _, err := out.Write(block); err != nil {
			return err
		}
	}

	log.Debugf("delta: %d blocks copied from basis, %d literal", copies, literals)

	if _, err := out.Write([]byte{opChecksum}); err != nil {
		return err
	}
	_, err := out.Write(fileSum.Sum(nil))
	return err
}

// DeltaR is Delta but reading the signature from a stream instead of a
// loaded SignatureType.
func DeltaR(sigIn io.Reader, newFile io.Reader, out io.Writer) error {
	sig, err := ReadSignature(sigIn)
	if err != nil {
		return err
	}
	return Delta(sig, newFile, out)
}
