// Package seal encrypts small secrets at rest with a passphrase.
//
// Keys are derived with Argon2id and data is sealed with XChaCha20-Poly1305.
// The output is a self-describing text envelope:
//
//	$sealv1$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<nonce_b64>$<ciphertext_b64>
//
// Envelopes are treated as untrusted input on Open: cost parameters are bounded
// before any key derivation runs.
package seal
