package accounts

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"

	"cennzxScope/internal/model"
)

// GenericPrefix is the SS58 prefix used by development chains.
const GenericPrefix uint16 = 42

const (
	publicKeyLen = 32
	checksumLen  = 2
	maxPrefix    = 16383
)

var ss58Preimage = []byte("SS58PRE")

// Encode renders a 32-byte public key as an SS58 address.
func Encode(publicKey []byte, prefix uint16) (model.Address, error) {
	if len(publicKey) != publicKeyLen {
		return "", fmt.Errorf("public key must be %d bytes, got %d", publicKeyLen, len(publicKey))
	}
	head, err := encodePrefix(prefix)
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, len(head)+publicKeyLen+checksumLen)
	payload = append(payload, head...)
	payload = append(payload, publicKey...)
	sum := checksum(payload)
	payload = append(payload, sum[:checksumLen]...)
	return model.Address(base58.Encode(payload)), nil
}

// Decode validates an SS58 address and returns its public key and prefix.
func Decode(address model.Address) ([]byte, uint16, error) {
	raw := base58.Decode(string(address))
	if len(raw) == 0 {
		return nil, 0, fmt.Errorf("invalid ss58 address %q: not base58", address)
	}

	prefix, headLen, err := decodePrefix(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid ss58 address %q: %w", address, err)
	}
	if len(raw) != headLen+publicKeyLen+checksumLen {
		return nil, 0, fmt.Errorf("invalid ss58 address %q: length %d", address, len(raw))
	}

	body := raw[:headLen+publicKeyLen]
	sum := checksum(body)
	if !bytes.Equal(sum[:checksumLen], raw[headLen+publicKeyLen:]) {
		return nil, 0, fmt.Errorf("invalid ss58 address %q: checksum mismatch", address)
	}

	key := make([]byte, publicKeyLen)
	copy(key, raw[headLen:headLen+publicKeyLen])
	return key, prefix, nil
}

// Canonical re-encodes an address under prefix.
func Canonical(address model.Address, prefix uint16) (model.Address, error) {
	key, current, err := Decode(address)
	if err != nil {
		return "", err
	}
	if current == prefix {
		return address, nil
	}
	return Encode(key, prefix)
}

func checksum(body []byte) [blake2b.Size]byte {
	preimage := make([]byte, 0, len(ss58Preimage)+len(body))
	preimage = append(preimage, ss58Preimage...)
	preimage = append(preimage, body...)
	return blake2b.Sum512(preimage)
}

func encodePrefix(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix <= maxPrefix:
		first := byte((prefix&0b0000_0000_1111_1100)>>2) | 0b0100_0000
		second := byte(prefix>>8) | byte((prefix&0b0000_0000_0000_0011)<<6)
		return []byte{first, second}, nil
	default:
		return nil, fmt.Errorf("ss58 prefix %d out of range", prefix)
	}
}

func decodePrefix(raw []byte) (uint16, int, error) {
	first := raw[0]
	switch {
	case first < 64:
		return uint16(first), 1, nil
	case first < 128:
		if len(raw) < 2 {
			return 0, 0, fmt.Errorf("truncated prefix")
		}
		lower := uint16(first<<2) | uint16(raw[1]>>6)
		upper := uint16(raw[1] & 0b0011_1111)
		return (lower & 0xff) | upper<<8, 2, nil
	default:
		return 0, 0, fmt.Errorf("reserved prefix byte %d", first)
	}
}
