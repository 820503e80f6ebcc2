package tor

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionV3Length is the length of a v3 onion address without the
	// ".onion" suffix: 56 characters of base32-encoded data.
	OnionV3Length = 56

	// OnionV3Version is the version byte for v3 onion addresses.
	OnionV3Version = 0x03

	// OnionV2Length is the length of a v2 onion address without the
	// ".onion" suffix. V2 was retired from the Tor network in 2021.
	OnionV2Length = 16

	// OnionSuffix is the common suffix for all onion addresses.
	OnionSuffix = ".onion"
)

// onionV3Pattern matches v3 onion addresses (56 base32 characters + .onion).
// Base32 uses lowercase a-z and digits 2-7.
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// onionV2Pattern matches v2 onion addresses (16 base32 characters + .onion).
var onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)

// checksumPrefix is the prefix used in v3 onion address checksum calculation,
// from the Tor rendezvous specification.
var checksumPrefix = []byte(".onion checksum")

// Onion target validation errors.
var (
	// ErrInvalidOnionAddress is returned when a .onion target host fails
	// validation.
	ErrInvalidOnionAddress = newOnionError("invalid onion address")

	// ErrV2AddressDeprecated is returned when a v2 address is provided.
	// V2 addresses stopped working in October 2021; probing one can only
	// waste circuits.
	ErrV2AddressDeprecated = newOnionError("v2 onion addresses are deprecated and no longer functional")
)

// ValidateOnionHost checks a target URL's .onion host before the run starts.
// A mistyped onion address would otherwise burn the whole candidate list on
// "host unreachable" transient errors, so this is a fatal configuration check.
func ValidateOnionHost(host string) error {
	host = strings.ToLower(strings.TrimSpace(host))

	if IsValidV3Address(host) {
		return nil
	}
	if IsV2Address(host) {
		return ErrV2AddressDeprecated
	}
	return ErrInvalidOnionAddress
}

// IsValidV3Address checks if the given address is a valid v3 onion address.
// It performs both format validation and checksum verification.
//
// Design decision: We perform full checksum validation rather than just
// pattern matching because:
// 1. It catches typos and corrupted addresses
// 2. It verifies the address was properly generated
// 3. It matches what Tor itself does when connecting
//
// The address should be lowercase and include the ".onion" suffix.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)

	if !onionV3Pattern.MatchString(address) {
		return false
	}

	onionPart := strings.TrimSuffix(address, OnionSuffix)

	// The Tor spec uses standard base32 encoding (RFC 4648)
	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(onionPart))
	if err != nil {
		return false
	}

	// Decoded data should be exactly 35 bytes:
	// - 32 bytes: ed25519 public key
	// - 2 bytes: checksum
	// - 1 byte: version
	if len(decoded) != 35 {
		return false
	}

	pubkey := decoded[:32]
	checksum := decoded[32:34]
	version := decoded[34]

	if version != OnionV3Version {
		return false
	}

	// Checksum = first 2 bytes of SHA3-256(".onion checksum" || pubkey || version)
	expectedChecksum := computeV3Checksum(pubkey, version)

	return checksum[0] == expectedChecksum[0] && checksum[1] == expectedChecksum[1]
}

// computeV3Checksum computes the checksum bytes for a v3 onion address.
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)

	return hash[:2]
}

// IsV2Address checks if the given address matches the v2 onion address
// format. V2 addresses no longer work on the Tor network; this exists to
// reject them with a specific message rather than a generic one.
func IsV2Address(address string) bool {
	return onionV2Pattern.MatchString(strings.ToLower(address))
}

// onionError is a custom error type for onion address errors.
type onionError struct {
	message string
}

// newOnionError creates a new onion error with the given message.
func newOnionError(message string) *onionError {
	return &onionError{message: message}
}

// Error implements the error interface.
func (e *onionError) Error() string {
	return e.message
}
