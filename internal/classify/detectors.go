package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/gonkalabs/codeblur/internal/registry"
)

// Kind names what a detector found.
type Kind string

const (
	KindEmail      Kind = "email"
	KindIPv6       Kind = "ipv6"
	KindIPv4       Kind = "ipv4"
	KindMAC        Kind = "mac"
	KindGUID       Kind = "guid"
	KindCard       Kind = "credit-card"
	KindSSN        Kind = "ssn"
	KindPhone      Kind = "phone"
	KindURL        Kind = "url"
	KindPath       Kind = "path"
	KindSecret     Kind = "secret"
	KindPrivateKey Kind = "private-key"
	KindCrypto     Kind = "crypto-address"
	KindDatabase   Kind = "db-uri"
	KindHex        Kind = "hex"
	KindNumber     Kind = "number"
	KindIdentifier Kind = "identifier"
)

// Detector is one entry of the ordered detection chain. Pattern is a
// regexp2 expression without capturing groups. Accept, when set, refines a
// regex match; a rejected match lets the following detectors try the same
// position. An empty Category hands the match to the segmenter.
type Detector struct {
	Name     string
	Kind     Kind
	Category registry.Category
	Pattern  string
	Accept   func(match string) bool
}

const hex4 = `[0-9a-fA-F]{1,4}`

// detectors is evaluated first-match-wins at every position. Specific,
// high-entropy shapes come before the generic numeric and identifier rules
// that would otherwise consume part of them.
var detectors = []Detector{
	{Name: "email", Kind: KindEmail, Category: registry.Path,
		Pattern: `[A-Za-z0-9_.+-]+@[A-Za-z0-9_.-]+\.[A-Za-z]{2,}`},

	{Name: "ipv6-full", Kind: KindIPv6, Category: registry.Path,
		Pattern: `\b(?:` + hex4 + `:){7}` + hex4 + `\b`, Accept: isIPv6},
	{Name: "ipv6-mixed", Kind: KindIPv6, Category: registry.Path,
		Pattern: `\b(?:` + hex4 + `:){1,6}(?::` + hex4 + `){1,6}\b`, Accept: isIPv6},
	{Name: "ipv6-compressed-trailing", Kind: KindIPv6, Category: registry.Path,
		Pattern: `\b(?:` + hex4 + `:){1,7}:(?![0-9a-fA-F:])`, Accept: isIPv6},
	{Name: "ipv6-compressed-leading", Kind: KindIPv6, Category: registry.Path,
		Pattern: `(?<![0-9a-fA-F:])::(?:` + hex4 + `:){0,6}` + hex4 + `\b`, Accept: isIPv6},
	{Name: "ipv4", Kind: KindIPv4, Category: registry.Path,
		Pattern: `\b[0-9]{1,3}(?:\.[0-9]{1,3}){3}(?::[0-9]+)?\b`, Accept: isIPv4},

	{Name: "mac", Kind: KindMAC, Category: registry.Path,
		Pattern: `\b(?:[0-9a-fA-F]{2}[:-]){5}[0-9a-fA-F]{2}\b`},

	{Name: "guid", Kind: KindGUID, Category: registry.GUID,
		Pattern: `\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`},

	{Name: "credit-card", Kind: KindCard, Category: registry.Number,
		Pattern: `\b(?:[0-9]{4}[ -]?){3}[0-9]{1,7}\b`, Accept: luhn},
	{Name: "ssn", Kind: KindSSN, Category: registry.Number,
		Pattern: `\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`},
	{Name: "phone", Kind: KindPhone, Category: registry.Number,
		Pattern: `\+?[0-9]{1,3}[ .-]?\(?[0-9]{3}\)?[ .-]?[0-9]{3}[ .-]?[0-9]{4}\b`},

	{Name: "url", Kind: KindURL, Category: registry.Path,
		Pattern: `\b(?:https?|ftp|file|wss?)://[^\s"'<>]*[^\s"'<>.,;:!?)\]}]`},

	{Name: "windows-path", Kind: KindPath, Category: registry.Path,
		Pattern: `\b[A-Za-z]:\\[^\s"'<>:*?|]+`},
	{Name: "unc-path", Kind: KindPath, Category: registry.Path,
		Pattern: `\\\\[^\s"'<>:*?|]+`},
	{Name: "unix-path", Kind: KindPath, Category: registry.Path,
		Pattern: `(?<![A-Za-z0-9_.])/(?:[A-Za-z0-9_.-]+/){2,}[A-Za-z0-9_.-]*`},

	{Name: "jwt", Kind: KindSecret, Category: registry.String,
		Pattern: `\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`},
	{Name: "aws-access-key", Kind: KindSecret, Category: registry.String,
		Pattern: `\bAKIA[A-Z0-9]{16}\b`},
	{Name: "google-api-key", Kind: KindSecret, Category: registry.String,
		Pattern: `\bAIza[0-9A-Za-z_-]{35}\b`},
	{Name: "github-token", Kind: KindSecret, Category: registry.String,
		Pattern: `\bgh[pousr]_[A-Za-z0-9]{36}\b`},
	{Name: "stripe-key", Kind: KindSecret, Category: registry.String,
		Pattern: `\b[sr]k_(?:live|test)_[0-9a-zA-Z]{24,}\b`},
	{Name: "square-token", Kind: KindSecret, Category: registry.String,
		Pattern: `\bsq0csp-[0-9A-Za-z_-]{43}\b`},
	{Name: "slack-token", Kind: KindSecret, Category: registry.String,
		Pattern: `\bxox[pboa]-[0-9]{10,13}-[0-9]{10,13}-[0-9a-zA-Z-]{24,}\b`},

	{Name: "private-key", Kind: KindPrivateKey, Category: registry.String,
		Pattern: `\b0x[0-9a-fA-F]{64}\b`, Accept: isPrivateKey},
	{Name: "ethereum-address", Kind: KindCrypto, Category: registry.String,
		Pattern: `\b(?:0x)?[0-9a-fA-F]{40}\b`, Accept: isEthAddress},
	{Name: "bitcoin-address", Kind: KindCrypto, Category: registry.String,
		Pattern: `\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`, Accept: isBase58Check},

	{Name: "db-uri", Kind: KindDatabase, Category: registry.Path,
		Pattern: `\b(?:mongodb(?:\+srv)?|mysql|mariadb|postgres(?:ql)?|redis|rediss|mssql|sqlserver|oracle|amqps?)://[^\s"'<>]+`,
		Accept: isURI},

	{Name: "hex", Kind: KindHex, Category: registry.Number,
		Pattern: `\b0x[0-9a-fA-F]+\b`},
	{Name: "number", Kind: KindNumber, Category: registry.Number,
		Pattern: `\b[0-9]{4,}(?:\.[0-9]+)?\b`},

	{Name: "identifier", Kind: KindIdentifier,
		Pattern: `\b[a-zA-Z_][a-zA-Z0-9_]{2,}\b`},
}

// Detectors returns a copy of the detection chain in priority order.
func Detectors() []Detector {
	out := make([]Detector, len(detectors))
	copy(out, detectors)
	return out
}

func isIPv6(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is6()
}

func isIPv4(s string) bool {
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.Is4()
}

// luhn validates the check digit of a card-shaped number.
func luhn(s string) bool {
	sum, n := 0, 0
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if n%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		n++
	}
	return n >= 13 && n <= 19 && sum%10 == 0
}

// isEthAddress accepts all-lower and all-upper addresses and mixed-case ones
// carrying a valid EIP-55 checksum.
func isEthAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex() == "0x"+body
}

// isPrivateKey accepts 32-byte hex strings that are valid secp256k1 scalars.
func isPrivateKey(s string) bool {
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return false
	}
	_, err = crypto.ToECDSA(raw)
	return err == nil
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// isBase58Check decodes a legacy bitcoin address and verifies its
// double-SHA256 checksum.
func isBase58Check(s string) bool {
	n := new(big.Int)
	radix := big.NewInt(58)
	for _, c := range s {
		i := strings.IndexRune(base58Alphabet, c)
		if i < 0 {
			return false
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(i)))
	}
	raw := n.Bytes()
	// Leading '1's encode leading zero bytes.
	for _, c := range s {
		if c != '1' {
			break
		}
		raw = append([]byte{0}, raw...)
	}
	if len(raw) != 25 {
		return false
	}
	first := sha256.Sum256(raw[:21])
	second := sha256.Sum256(first[:])
	return string(second[:4]) == string(raw[21:])
}

func isURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}
