package taiasm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/reusee/tairepl/taivm"
	"github.com/zeebo/blake3"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("taiasm: create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode serializes an assembled module to its binary form.
func Encode(m *taivm.Module) ([]byte, error) {
	bs, err := cborEncMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("taiasm: marshal module: %w", err)
	}
	return bs, nil
}

func Decode(data []byte) (*taivm.Module, error) {
	var m taivm.Module
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("taiasm: unmarshal module: %w", err)
	}
	return &m, nil
}

func Digest(data []byte) [32]byte {
	return blake3.Sum256(data)
}
