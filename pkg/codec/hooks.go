package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// Compression and encryption are compose-after-encode hooks layered on
// top of an already-framed message: LZ4 for compression, AES-GCM with a
// SHA-256-derived key for encryption.

var compressPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// Compress applies LZ4 to an already-encoded frame.
func Compress(src []byte) []byte {
	buf := compressPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer compressPool.Put(buf)

	zw := lz4.NewWriter(buf)
	_, _ = zw.Write(src)
	_ = zw.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// Decompress reverses Compress.
func Decompress(src []byte) ([]byte, error) {
	buf := compressPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer compressPool.Put(buf)

	zr := lz4.NewReader(bytes.NewReader(src))
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, ErrMalformedFrame
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// ErrDecryptFailed is returned when an encrypted frame fails to open,
// e.g. wrong key or a truncated/tampered ciphertext.
var ErrDecryptFailed = errors.New("codec: frame decryption failed")

// Cipher wraps a pre-shared secret into an AES-256-GCM seal/open pair for
// the optional binary_encryption setting.
type Cipher struct {
	gcm cipher.AEAD
}

// NewCipher derives a 256-bit key from secret via SHA-256.
func NewCipher(secret string) (*Cipher, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{gcm: gcm}, nil
}

// Seal encrypts and authenticates data, prefixing the nonce.
func (c *Cipher) Seal(data []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(cryptoRandReader, nonce); err != nil {
		return nil, err
	}
	return c.gcm.Seal(nonce, nonce, data, nil), nil
}

// Open reverses Seal.
func (c *Cipher) Open(data []byte) ([]byte, error) {
	ns := c.gcm.NonceSize()
	if len(data) < ns {
		return nil, ErrDecryptFailed
	}
	nonce, ct := data[:ns], data[ns:]
	out, err := c.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return out, nil
}
