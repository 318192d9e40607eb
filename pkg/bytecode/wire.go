package bytecode

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion identifies the chunk encoding produced by MarshalChunk.
// The encoding is only meant to move a chunk between parts of one build;
// decoders reject any other version.
const WireVersion uint16 = 1

// cborEncMode uses canonical mode for deterministic encoding, so equal
// chunks encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireValue struct {
	Kind ValueKind `cbor:"1,keyasint"`
	Bits uint64    `cbor:"2,keyasint"`
}

type wireChunk struct {
	Version   uint16      `cbor:"1,keyasint"`
	Code      []byte      `cbor:"2,keyasint"`
	Lines     []int       `cbor:"3,keyasint"`
	Constants []wireValue `cbor:"4,keyasint"`
	Strings   []string    `cbor:"5,keyasint"`
}

// MarshalChunk serializes a Chunk to CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	w := wireChunk{
		Version:   WireVersion,
		Code:      c.Code,
		Lines:     c.Lines,
		Constants: make([]wireValue, len(c.Constants)),
		Strings:   c.Objects.Strings(),
	}
	for i, v := range c.Constants {
		w.Constants[i] = wireValue{Kind: v.kind, Bits: v.bits}
	}
	return cborEncMode.Marshal(&w)
}

// UnmarshalChunk deserializes a Chunk from CBOR bytes and checks that it is
// well formed: matching code and line tables, known value kinds, and object
// references that resolve.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var w wireChunk
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if w.Version != WireVersion {
		return nil, fmt.Errorf("bytecode: chunk encoding version %d, want %d", w.Version, WireVersion)
	}
	if len(w.Code) != len(w.Lines) {
		return nil, fmt.Errorf("bytecode: %d code bytes but %d line entries", len(w.Code), len(w.Lines))
	}
	if len(w.Constants) > MaxConstants {
		return nil, fmt.Errorf("bytecode: %d constants: %w", len(w.Constants), ErrTooManyConstants)
	}

	c := NewChunk()
	c.Code = append(c.Code, w.Code...)
	c.Lines = append(c.Lines, w.Lines...)
	for i, s := range w.Strings {
		// Interning collapses duplicates, which would shift later references.
		if c.Objects.InternString(s).AsObject() != uint32(i) {
			return nil, fmt.Errorf("bytecode: string %d duplicates an earlier entry", i)
		}
	}
	for i, wv := range w.Constants {
		switch {
		case wv.Kind > KindObject:
			return nil, fmt.Errorf("bytecode: constant %d has unknown kind %d", i, wv.Kind)
		case wv.Kind == KindNil && wv.Bits != 0:
			return nil, fmt.Errorf("bytecode: nil constant %d has payload %#x", i, wv.Bits)
		case wv.Kind == KindBool && wv.Bits > 1:
			return nil, fmt.Errorf("bytecode: bool constant %d has payload %#x", i, wv.Bits)
		}
		v := Value{kind: wv.Kind, bits: wv.Bits}
		if !c.Objects.Contains(v) {
			return nil, fmt.Errorf("bytecode: constant %d references missing object %d", i, v.AsObject())
		}
		c.Constants = append(c.Constants, v)
	}
	return c, nil
}

// Fingerprint returns the SHA-256 digest of the chunk's canonical encoding.
// Two chunks with the same code, lines, constants and strings share a
// fingerprint.
func (c *Chunk) Fingerprint() ([32]byte, error) {
	data, err := MarshalChunk(c)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
