package testdata

// TestVector contains known input/output pairs for testing.
type TestVector struct {
	Name      string
	Key       string // Hex
	Nonce     string // Hex
	Plaintext string // Hex
	Result    string // Hex, ciphertext || tag
}

// Vectors are AEAD_AES_256_GCM_SIV cases from RFC 8452 Appendix C.2 with
// empty associated data.
var Vectors = []TestVector{
	{
		Name:      "empty plaintext",
		Key:       "0100000000000000000000000000000000000000000000000000000000000000",
		Nonce:     "030000000000000000000000",
		Plaintext: "",
		Result:    "07f5f4169bbf55a8400cd47ea6fd400f",
	},
	{
		Name:      "8 byte plaintext",
		Key:       "0100000000000000000000000000000000000000000000000000000000000000",
		Nonce:     "030000000000000000000000",
		Plaintext: "0100000000000000",
		Result:    "c2ef328e5c71c83b843122130f7364b761e0b97427e3df28",
	},
}
