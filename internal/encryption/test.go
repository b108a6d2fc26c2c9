package encryption

import (
	"bytes"
	"fmt"
	"io"

	"fc-go/internal/fc"
)

// testHeader marks ciphertext produced by TestEncryptor. Eight bytes, so a
// decrypt of arbitrary data fails fast on the magic check.
var testHeader = []byte("FCENC\x00\x00\x00")

// TestEncryptor is the no-crypto stand-in used in tests: it prepends
// testHeader on encrypt and strips it on decrypt. Output stays deterministic
// and distinguishable from the plaintext (its checksum changes), which is all
// the backup paths need to assert.
type TestEncryptor struct {
	setupCalled bool
}

var _ fc.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

// Setup records the call and succeeds; there are no keys to generate.
func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

// Unlock accepts any passphrase.
func (e *TestEncryptor) Unlock(passphrase string) (fc.DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext reverses TestEncryptor: it checks and drops the
// magic header, then passes the rest through.
type TestDecryptionContext struct{}

var _ fc.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	magic := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(magic, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
