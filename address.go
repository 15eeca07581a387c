package quorum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/iov-one/quorum/errors"
)

var (
	// AddressLength is the length of all addresses.
	AddressLength = 20

	// AddressPrefix is the bech32 human readable part used when printing
	// addresses.
	AddressPrefix = "qrm"

	// it must have (?s) flags, otherwise it errors when last section contains 0x20 (newline)
	perm = regexp.MustCompile(`(?s)^([a-zA-Z0-9_\-]{3,8})/([a-zA-Z0-9_\-]{3,8})/(.+)$`)
)

// Condition is a specially formatted array, containing information on who
// can authorize an action. It is of the format:
//
//   sprintf("%s/%s/%s", extension, type, data)
type Condition []byte

func NewCondition(ext, typ string, data []byte) Condition {
	pre := fmt.Sprintf("%s/%s/", ext, typ)
	return append([]byte(pre), data...)
}

// Parse will extract the sections from the Condition bytes and verify it is
// properly formatted.
func (c Condition) Parse() (string, string, []byte, error) {
	chunks := perm.FindSubmatch(c)
	if len(chunks) == 0 {
		return "", "", nil, errors.ErrInput.Newf("condition: %X", []byte(c))
	}
	// returns [all, match1, match2, match3]
	return string(chunks[1]), string(chunks[2]), chunks[3], nil
}

// Address will convert a Condition into an Address.
func (c Condition) Address() Address {
	return NewAddress(c)
}

// Equals checks if two conditions are the same.
func (c Condition) Equals(b Condition) bool {
	return bytes.Equal(c, b)
}

// String returns a human readable string. We keep the extension and type in
// ascii and hex-encode the binary data.
func (c Condition) String() string {
	ext, typ, data, err := c.Parse()
	if err != nil {
		return fmt.Sprintf("Invalid Condition: %X", []byte(c))
	}
	return fmt.Sprintf("%s/%s/%X", ext, typ, data)
}

// Validate returns an error if the Condition is not the proper format.
func (c Condition) Validate() error {
	if !perm.Match(c) {
		return errors.ErrInput.Newf("condition: %X", []byte(c))
	}
	return nil
}

// Address represents a collision-free, one-way digest of a Condition. It is
// the identity of a wallet member and of any receiver of wallet effects.
//
// It will be of size AddressLength.
type Address []byte

// NewAddress hashes and truncates into the proper size.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	h := sha256.Sum256(data)
	return h[:AddressLength]
}

// Equals checks if two addresses are the same.
func (a Address) Equals(b Address) bool {
	return bytes.Equal(a, b)
}

// Clone returns a copy that does not share memory with the original.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	c := make(Address, len(a))
	copy(c, a)
	return c
}

// Validate returns an error if the address is not the valid size.
func (a Address) Validate() error {
	if len(a) == 0 {
		return errors.Wrap(errors.ErrEmpty, "address")
	}
	if len(a) != AddressLength {
		return errors.ErrInput.Newf("address length %d", len(a))
	}
	return nil
}

// String returns a bech32 representation of the address.
func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	s, err := bech32Encode(AddressPrefix, a)
	if err != nil {
		return strings.ToUpper(hex.EncodeToString(a))
	}
	return s
}

// MarshalJSON provides a bech32 representation for JSON, to override the
// standard base64 []byte encoding.
func (a Address) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return errors.Wrap(errors.ErrInput, "cannot decode json")
	}
	if enc == "" {
		*a = nil
		return nil
	}
	addr, err := ParseAddress(enc)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// ParseAddress accepts address in a human readable format and returns its
// binary representation. Supported formats are bech32 (default), hex
// prefixed with "hex:" and a condition prefixed with "cond:".
func ParseAddress(enc string) (Address, error) {
	chunks := strings.SplitN(enc, ":", 2)
	format := "bech32"
	if len(chunks) == 2 {
		format, enc = chunks[0], chunks[1]
	}

	var addr Address
	switch format {
	case "bech32":
		hrp, payload, err := bech32Decode(enc)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "deserialize bech32: %s", err)
		}
		if hrp != AddressPrefix {
			return nil, errors.ErrInput.Newf("unexpected bech32 prefix %q", hrp)
		}
		addr = payload
	case "hex":
		val, err := hex.DecodeString(enc)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "cannot decode hex: %s", err)
		}
		addr = val
	case "cond":
		c, err := parseCondition(enc)
		if err != nil {
			return nil, err
		}
		addr = c.Address()
	default:
		return nil, errors.ErrType.Newf("unknown format %q", format)
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}

// parseCondition deserialize a condition from its human readable form.
func parseCondition(source string) (Condition, error) {
	args := strings.Split(source, "/")
	if len(args) != 3 {
		return nil, errors.ErrInput.New("invalid condition format")
	}
	data, err := hex.DecodeString(args[2])
	if err != nil {
		return nil, errors.ErrInput.Newf("malformed condition data: %s", err)
	}
	c := NewCondition(args[0], args[1], data)
	return c, c.Validate()
}

func bech32Encode(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}

func bech32Decode(s string) (string, []byte, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", nil, err
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, err
	}
	return hrp, conv, nil
}
