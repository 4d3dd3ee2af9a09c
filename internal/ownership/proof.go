package ownership

import "huellas/internal/models"

// Proof is either a SessionProof or a SecretProof.
type Proof interface {
	isProof()
}

// SessionProof identifies a signed-in caller.
type SessionProof struct {
	UserID uint
}

// SecretProof carries the plaintext owner secret of an anonymous post.
type SecretProof struct {
	Plaintext string
}

func (SessionProof) isProof() {}
func (SecretProof) isProof()  {}

// Owner is the stored ownership pair of a post.
type Owner struct {
	UserID     *uint
	SecretHash *string
}

// OwnerOf reads the ownership pair from a post.
func OwnerOf(p models.Post) Owner {
	b := p.Base()
	return Owner{UserID: b.UserID, SecretHash: b.OwnerSecretHash}
}

// errNotOwner is returned for every kind of mismatch.
func errNotOwner() error {
	return models.NewUnauthorizedError("You are not allowed to modify this post")
}

// Authorize checks proof against owner. Every failure returns the same error.
func Authorize(proof Proof, owner Owner) error {
	switch p := proof.(type) {
	case SessionProof:
		if owner.UserID != nil && *owner.UserID == p.UserID && p.UserID != 0 {
			return nil
		}
	case SecretProof:
		if owner.UserID == nil && owner.SecretHash != nil && VerifySecret(p.Plaintext, *owner.SecretHash) {
			return nil
		}
	}
	return errNotOwner()
}

// ProofFrom picks the proof a request carries. A presented secret is used
// even for a signed-in caller, so an anonymous post stays manageable after
// its author signs in.
func ProofFrom(userID uint, secret string) (Proof, error) {
	if secret != "" {
		return SecretProof{Plaintext: secret}, nil
	}
	if userID != 0 {
		return SessionProof{UserID: userID}, nil
	}
	return nil, models.NewUnauthorizedError("Sign in or provide the post secret")
}
