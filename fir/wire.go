package fir

import (
	"crypto/sha256"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so that equal stores encode to equal
// bytes, which Fingerprint relies on.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("fir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalStore serializes a PackageStore to CBOR bytes.
func MarshalStore(s *PackageStore) ([]byte, error) {
	data, err := cborEncMode.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "fir: marshal store")
	}
	return data, nil
}

// UnmarshalStore deserializes a PackageStore from CBOR bytes.
func UnmarshalStore(data []byte) (*PackageStore, error) {
	var s PackageStore
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "fir: unmarshal store")
	}
	if s.Packages == nil {
		s.Packages = make(map[PackageId]*Package)
	}
	if _, ok := s.Packages[s.Entry.Package]; !ok {
		return nil, errors.Newf("fir: entry package %d missing from store", s.Entry.Package)
	}
	return &s, nil
}

// Fingerprint computes the SHA-256 content hash of a store over its
// canonical CBOR encoding. Two stores with identical contents produce the
// same fingerprint.
func Fingerprint(s *PackageStore) ([32]byte, error) {
	data, err := MarshalStore(s)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
