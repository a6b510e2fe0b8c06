package chainclient

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

const addressPrefix = 0x41

var txIDPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidTransactionID reports whether id matches the network's
// transaction id syntax. The engine validates ids but never
// interprets them.
func ValidTransactionID(id string) bool {
	return txIDPattern.MatchString(id)
}

// AddressToHex decodes a base58check network address to the raw hex
// form the node API expects.
func AddressToHex(address string) (string, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return "", fmt.Errorf("invalid base58 address %q: %v", address, err)
	}
	if len(decoded) != 25 {
		return "", fmt.Errorf("invalid address length for %q: got %d bytes", address, len(decoded))
	}
	raw := decoded[:21] // prefix(1) + body(20), checksum stripped
	if raw[0] != addressPrefix {
		return "", fmt.Errorf("invalid address prefix for %q", address)
	}

	first := sha256.Sum256(raw)
	second := sha256.Sum256(first[:])
	if string(second[:4]) != string(decoded[21:]) {
		return "", fmt.Errorf("checksum mismatch for %q", address)
	}

	return hex.EncodeToString(raw), nil
}

// ValidAddress reports whether address is a well-formed network address.
func ValidAddress(address string) bool {
	_, err := AddressToHex(address)
	return err == nil
}

// addressFromKey derives the base58check and hex forms of the address
// controlled by privKey.
func addressFromKey(privKey *ecdsa.PrivateKey) (string, string) {
	pubBytes := crypto.FromECDSAPub(&privKey.PublicKey)
	pubKeyHash := crypto.Keccak256(pubBytes[1:])

	raw := append([]byte{addressPrefix}, pubKeyHash[12:]...)

	first := sha256.Sum256(raw)
	second := sha256.Sum256(first[:])
	full := append(raw, second[:4]...)

	return base58.Encode(full), hex.EncodeToString(raw)
}
