package models

import (
	"fmt"
	"strings"
)

// MaxIdentifierLength bounds identifiers to a single path component on common filesystems.
const MaxIdentifierLength = 255

// CredentialRecord is the at-rest form of a stored credential.
type CredentialRecord struct {
	Identifier string
	Username   string
	Nonce      []byte
	Ciphertext []byte
}

// Credential is a decrypted credential, meant for immediate display.
type Credential struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// String renders the two-line fetch output.
func (c *Credential) String() string {
	return fmt.Sprintf("username:%s\npassword:%s", c.Username, c.Password)
}

// ValidateIdentifier rejects identifiers that cannot name a single record
// directory under the records root.
func ValidateIdentifier(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	case len(id) > MaxIdentifierLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdentifier, MaxIdentifierLength)
	case strings.ContainsAny(id, "/\\\x00"):
		return fmt.Errorf("%w: contains a path separator or null byte", ErrInvalidIdentifier)
	case strings.HasPrefix(id, "."):
		// covers "." and ".." too
		return fmt.Errorf("%w: must not start with '.'", ErrInvalidIdentifier)
	}
	return nil
}
