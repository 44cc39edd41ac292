package models

import "fmt"

// Default generation bounds written at initialization.
const (
	DefaultMinLength uint32 = 12
	DefaultMaxLength uint32 = 20

	// MaxPolicyLength caps generated passwords; the generator allocates
	// MaxLength bytes up front.
	MaxPolicyLength uint32 = 4096
)

// GenerationPolicy bounds the length of generated credentials.
type GenerationPolicy struct {
	MinLength uint32 `toml:"new_password_min_length" json:"min_length"`
	MaxLength uint32 `toml:"new_password_max_length" json:"max_length"`
}

// DefaultPolicy returns the policy written by a fresh vault.
func DefaultPolicy() GenerationPolicy {
	return GenerationPolicy{
		MinLength: DefaultMinLength,
		MaxLength: DefaultMaxLength,
	}
}

// Validate checks MinLength <= MaxLength <= MaxPolicyLength.
func (p GenerationPolicy) Validate() error {
	if p.MaxLength < p.MinLength {
		return fmt.Errorf("%w: maximum length %d is below minimum length %d", ErrInvalidPolicy, p.MaxLength, p.MinLength)
	}
	if p.MaxLength > MaxPolicyLength {
		return fmt.Errorf("%w: maximum length %d exceeds %d", ErrInvalidPolicy, p.MaxLength, MaxPolicyLength)
	}
	return nil
}
