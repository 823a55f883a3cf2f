package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
)

// HashKeyer is implemented by values that can append a stable, content-derived
// key to a byte slice. Two values with the same configuration must append the
// same bytes.
type HashKeyer interface {
	HashKey(dst []byte) []byte
}

// ChecksumKeyProxy accumulates hash keys and calculates an MD5 checksum over them.
type ChecksumKeyProxy struct {
	raw      []byte
	checksum hash.Hash
	count    int
}

// NewChecksumKeyProxy creates an empty key accumulator.
func NewChecksumKeyProxy() *ChecksumKeyProxy {
	return &ChecksumKeyProxy{
		checksum: md5.New(),
	}
}

// Put appends the key of k to the accumulator.
func (p *ChecksumKeyProxy) Put(k HashKeyer) error {
	start := len(p.raw)
	p.raw = k.HashKey(p.raw)
	if _, err := p.checksum.Write(p.raw[start:]); err != nil {
		return err
	}
	p.count++
	return nil
}

// Size returns the number of keys added.
func (p *ChecksumKeyProxy) Size() int {
	return p.count
}

// Bytes returns the concatenation of all keys added so far.
func (p *ChecksumKeyProxy) Bytes() []byte {
	return p.raw
}

// GetChecksum returns the MD5 of all keys as a hex string.
func (p *ChecksumKeyProxy) GetChecksum() (string, error) {
	return hex.EncodeToString(p.checksum.Sum(nil)), nil
}

// ChecksumOf returns the hex MD5 of the keys of all values, in order.
func ChecksumOf[T HashKeyer](values []T) string {
	p := NewChecksumKeyProxy()
	for _, v := range values {
		// md5 writes never fail
		_ = p.Put(v)
	}
	sum, _ := p.GetChecksum()
	return sum
}
