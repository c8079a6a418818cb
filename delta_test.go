package bdiff

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeDelta runs the signature+delta pipeline over in-memory files.
func makeDelta(t *testing.T, basis, newFile []byte, blockSize uint32) []byte {
	t.Helper()
	var sig, delta bytes.Buffer
	require.NoError(t, Signature(bytes.NewReader(basis), &sig, blockSize))
	require.NoError(t, DeltaR(&sig, bytes.NewReader(newFile), &delta))
	return delta.Bytes()
}

// deltaBody strips the stream header, leaving the instruction sequence.
func deltaBody(t *testing.T, delta []byte) []byte {
	t.Helper()
	require.True(t, len(delta) >= sigHeaderLen)
	require.Equal(t, []byte("bdifdlt"), delta[:7])
	return delta[sigHeaderLen:]
}

func copyInstr(idx uint32) []byte {
	instr := []byte{opCopy, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(instr[1:], idx)
	return instr
}

func checksumInstr(data []byte) []byte {
	sum := sha256.Sum256(data)
	return append([]byte{opChecksum}, sum[:]...)
}

func TestDelta_SwappedBlocks(t *testing.T) {
	delta := makeDelta(t, []byte("AAAABBBB"), []byte("BBBBAAAA"), 4)

	want := copyInstr(1)
	want = append(want, copyInstr(0)...)
	want = append(want, checksumInstr([]byte("BBBBAAAA"))...)
	assert.Equal(t, want, deltaBody(t, delta))
}

func TestDelta_ChangedFinalBlock(t *testing.T) {
	delta := makeDelta(t, []byte("AAAABBBB"), []byte("AAAABBBX"), 4)

	want := copyInstr(0)
	want = append(want, opLiteral)
	want = append(want, []byte("BBBX")...)
	want = append(want, checksumInstr([]byte("AAAABBBX"))...)
	assert.Equal(t, want, deltaBody(t, delta))
}

func TestDelta_ShortNewFile(t *testing.T) {
	delta := makeDelta(t, []byte("AAAABBBB"), []byte("xyz"), 4)

	want := []byte{opShortLiteral, 0, 0, 0, 3}
	want = append(want, []byte("xyz")...)
	want = append(want, checksumInstr([]byte("xyz"))...)
	assert.Equal(t, want, deltaBody(t, delta))
}

func TestDelta_EmptyBasisYieldsOnlyLiterals(t *testing.T) {
	newFile := []byte("AAAABBBBCC")
	delta := makeDelta(t, nil, newFile, 4)

	body := deltaBody(t, delta)
	want := append([]byte{opLiteral}, []byte("AAAA")...)
	want = append(want, opLiteral)
	want = append(want, []byte("BBBB")...)
	want = append(want, []byte{opShortLiteral, 0, 0, 0, 2, 'C', 'C'}...)
	want = append(want, checksumInstr(newFile)...)
	assert.Equal(t, want, body)
}

func TestDelta_EmptyNewFile(t *testing.T) {
	delta := makeDelta(t, []byte("AAAABBBB"), nil, 4)
	assert.Equal(t, checksumInstr(nil), deltaBody(t, delta))
}

func TestDelta_ExactMultipleNeverShortLiteral(t *testing.T) {
	basis := bytes.Repeat([]byte{0xAB}, 32)
	newFile := bytes.Repeat([]byte{0xCD}, 32)
	body := deltaBody(t, makeDelta(t, basis, newFile, 8))

	for i := 0; i < len(body)-1; {
		switch body[i] {
		case opCopy:
			i += 5
		case opLiteral:
			i += 9
		case opChecksum:
			i += 1 + fileDigestLen
		default:
			t.Fatalf("unexpected instruction %#x at offset %d", body[i], i)
		}
	}
}

func TestDelta_DuplicateBasisBlocksCopyFirstIndex(t *testing.T) {
	delta := makeDelta(t, []byte("AAAAAAAA"), []byte("AAAA"), 4)

	want := copyInstr(0)
	want = append(want, checksumInstr([]byte("AAAA"))...)
	assert.Equal(t, want, deltaBody(t, delta))
}

func TestDelta_MatchingShortTailCopies(t *testing.T) {
	// new file ends with the basis file's short final block
	delta := makeDelta(t, []byte("AAAABB"), []byte("XXXXBB"), 4)

	want := append([]byte{opLiteral}, []byte("XXXX")...)
	want = append(want, copyInstr(1)...)
	want = append(want, checksumInstr([]byte("XXXXBB"))...)
	assert.Equal(t, want, deltaBody(t, delta))
}

func TestDeltaR_BadSignature(t *testing.T) {
	var delta bytes.Buffer
	err := DeltaR(bytes.NewReader([]byte("garbagegarbagegarbage")), bytes.NewReader([]byte("new")), &delta)
	assert.ErrorIs(t, err, ErrInvalidSignatureFormat)
}
