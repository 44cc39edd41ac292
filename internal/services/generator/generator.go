package generator

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/TheMichaelB/credvault/internal/models"
)

// Alphabet is the character set generated passwords draw from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generator produces random alphanumeric passwords.
type Generator struct {
	rand io.Reader
}

// New creates a generator backed by crypto/rand.
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader creates a generator drawing from r.
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate draws policy.MaxLength characters, then truncates them to a
// length chosen uniformly in [MinLength, MaxLength].
func (g *Generator) Generate(policy models.GenerationPolicy) (string, error) {
	if err := policy.Validate(); err != nil {
		return "", err
	}

	buf := make([]byte, policy.MaxLength)
	for i := range buf {
		n, err := rand.Int(g.rand, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("draw character: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}

	span := big.NewInt(int64(policy.MaxLength-policy.MinLength) + 1)
	n, err := rand.Int(g.rand, span)
	if err != nil {
		return "", fmt.Errorf("draw length: %w", err)
	}
	length := int(policy.MinLength) + int(n.Int64())

	return string(buf[:length]), nil
}
