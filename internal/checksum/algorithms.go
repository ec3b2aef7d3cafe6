package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"hash/crc64"
	"hash/fnv"

	"golang.org/x/crypto/sha3"
)

// stdDigest wraps any stdlib hash.Hash to satisfy Digest. Covers every
// algorithm here, including the two zlib checksums (hash/crc32 and
// hash/adler32 expose them as hash.Hash32, which is a hash.Hash) and
// SHAKE256 through shakeAdapter.
type stdDigest struct {
	name string
	h    hash.Hash
	new  func() hash.Hash
}

func (d *stdDigest) Write(p []byte) (int, error) { return d.h.Write(p) }
func (d *stdDigest) Name() string                { return d.name }
func (d *stdDigest) Size() int                   { return d.h.Size() }
func (d *stdDigest) Reset()                      { d.h = d.new() }
func (d *stdDigest) Sum() []byte                  { return d.h.Sum(nil) }
func (d *stdDigest) HexSum() string              { return hex.EncodeToString(d.Sum()) }

func newStd(name string, ctor func() hash.Hash) Factory {
	return func() Digest {
		return &stdDigest{name: name, h: ctor(), new: ctor}
	}
}

var crc64Table = crc64.MakeTable(crc64.ISO)

func init() {
	Register("crc32", newStd("crc32", func() hash.Hash { return crc32.NewIEEE() }))
	Register("crc64", newStd("crc64", func() hash.Hash { return crc64.New(crc64Table) }))
	Register("adler32", newStd("adler32", func() hash.Hash { return adler32.New() }))

	Register("fnv-1-32", newStd("fnv-1-32", func() hash.Hash { return fnv.New32() }))
	Register("fnv-1a-32", newStd("fnv-1a-32", func() hash.Hash { return fnv.New32a() }))
	Register("fnv-1-64", newStd("fnv-1-64", func() hash.Hash { return fnv.New64() }))
	Register("fnv-1a-64", newStd("fnv-1a-64", func() hash.Hash { return fnv.New64a() }))
	Register("fnv-1-128", newStd("fnv-1-128", func() hash.Hash { return fnv.New128() }))
	Register("fnv-1a-128", newStd("fnv-1a-128", func() hash.Hash { return fnv.New128a() }))

	Register("md5", newStd("md5", md5.New))
	Register("sha1", newStd("sha1", sha1.New))
	Register("sha256", newStd("sha256", sha256.New))
	Register("sha512", newStd("sha512", sha512.New))
	Register("sha3-256", newStd("sha3-256", sha3.New256))
	Register("sha3-512", newStd("sha3-512", sha3.New512))
	Register("shake256-64", newStd("shake256-64", func() hash.Hash { return newShake(32) }))
	Register("shake256-128", newStd("shake256-128", func() hash.Hash { return newShake(64) }))
}

// shakeAdapter adapts sha3's variable-output ShakeHash to the
// fixed-output hash.Hash interface at a chosen output size, since the
// rest of the scanner (suppression digests, incremental store) only
// deals in fixed-size sums.
type shakeAdapter struct {
	sh   sha3.ShakeHash
	size int
}

func newShake(size int) hash.Hash {
	return &shakeAdapter{sh: sha3.NewShake256(), size: size}
}

func (s *shakeAdapter) Write(p []byte) (int, error) { return s.sh.Write(p) }
func (s *shakeAdapter) Sum(b []byte) []byte {
	out := make([]byte, s.size)
	clone := s.sh.Clone()
	clone.Read(out)
	return append(b, out...)
}
func (s *shakeAdapter) Reset()      { s.sh.Reset() }
func (s *shakeAdapter) Size() int   { return s.size }
func (s *shakeAdapter) BlockSize() int { return 136 }
