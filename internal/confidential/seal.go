package confidential

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// Sealed is ciphertext readable only by the single recipient key it was
// sealed under. The same plaintext is never sealed to two scopes in a form
// that lets one scope derive the other's view.
type Sealed []byte

// RecipientKey is a Curve25519 public key identifying one capability scope
// (owner, relayer, compliance officer).
type RecipientKey [32]byte

// SealTo encrypts plaintext for exactly one recipient using an ephemeral
// sender key, so the sealed blob carries no link back to the sealer.
func SealTo(recipient RecipientKey, plaintext []byte) (Sealed, error) {
	pub := [32]byte(recipient)
	out, err := box.SealAnonymous(nil, plaintext, &pub, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailed, err)
	}
	return out, nil
}

// Open decrypts a sealed blob with the recipient's keypair.
func Open(sealed Sealed, recipientPub RecipientKey, recipientPriv [32]byte) ([]byte, error) {
	pub := [32]byte(recipientPub)
	msg, ok := box.OpenAnonymous(nil, sealed, &pub, &recipientPriv)
	if !ok {
		return nil, ErrOpenFailed
	}
	return msg, nil
}

// GenerateRecipientKey creates a fresh capability keypair.
func GenerateRecipientKey() (RecipientKey, [32]byte, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return RecipientKey{}, [32]byte{}, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return RecipientKey(*pub), *priv, nil
}
