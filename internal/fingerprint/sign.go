package fingerprint

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // ProtonMail's maintained fork
)

// Sign produces a binary detached OpenPGP signature over the message
// stream using the signer's private key.
func Sign(message io.Reader, signer *openpgp.Entity) ([]byte, error) {
	if signer == nil || signer.PrivateKey == nil {
		return nil, fmt.Errorf("signing entity has no private key")
	}

	var buf bytes.Buffer
	if err := openpgp.DetachSign(&buf, signer, message, nil); err != nil {
		return nil, fmt.Errorf("detached sign: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks a binary detached signature over the message stream
// against a public keyring. A nil error means some key in the keyring
// produced the signature.
func Verify(message io.Reader, signature []byte, keyring openpgp.EntityList) error {
	if len(signature) == 0 {
		return fmt.Errorf("empty signature")
	}
	if len(keyring) == 0 {
		return fmt.Errorf("keyring is empty")
	}

	_, err := openpgp.CheckDetachedSignature(keyring, message, bytes.NewReader(signature), nil)
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

// VerifyFile verifies a detached signature over a file's bytes.
func VerifyFile(path string, signature []byte, keyring openpgp.EntityList) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Verify(f, signature, keyring)
}

// ReadKeyring loads an OpenPGP keyring, accepting armored or binary form.
func ReadKeyring(r io.ReadSeeker) (openpgp.EntityList, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		if _, serr := r.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", serr)
		}
		keyring, err = openpgp.ReadKeyRing(r)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}

// ReadKeyringFile loads an OpenPGP keyring from disk.
func ReadKeyringFile(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer f.Close()
	return ReadKeyring(f)
}

// ReadSigningKey loads a private signing key from disk, decrypting it
// with the passphrase when the key material is encrypted. The first
// entity in the keyring that carries a private key is returned.
func ReadSigningKey(path string, passphrase []byte) (*openpgp.Entity, error) {
	keyring, err := ReadKeyringFile(path)
	if err != nil {
		return nil, err
	}

	for _, entity := range keyring {
		if entity.PrivateKey == nil {
			continue
		}
		if entity.PrivateKey.Encrypted {
			if len(passphrase) == 0 {
				return nil, fmt.Errorf("signing key is encrypted and no passphrase was given")
			}
			if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
				return nil, fmt.Errorf("decrypt signing key: %w", err)
			}
		}
		return entity, nil
	}
	return nil, fmt.Errorf("no private key found in %s", path)
}
