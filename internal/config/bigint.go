package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BigInt is an arbitrary-precision integer setting. In YAML it may be
// written as a plain integer or a quoted string; "_" and "," digit
// separators are accepted.
type BigInt struct {
	*big.Int
}

// String returns the canonical decimal form, or "" when unset.
func (b BigInt) String() string {
	if b.Int == nil {
		return ""
	}
	return b.Int.String()
}

// UnmarshalYAML parses the raw scalar text so values beyond 64 bits keep
// full precision.
func (b *BigInt) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an integer", node.Line)
	}
	n, err := ParseBigInt(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	b.Int = n
	return nil
}

// MarshalYAML writes the value as a decimal string.
func (b BigInt) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// ParseBigInt parses a base-10 integer, ignoring "_", "," and spaces used as
// digit separators. Powers may be written as 1e30, 5E12 or 10^30.
func ParseBigInt(s string) (*big.Int, error) {
	clean := strings.NewReplacer("_", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return nil, fmt.Errorf("invalid integer %q", s)
	}

	if i := strings.IndexAny(clean, "eE^"); i > 0 {
		mant, ok1 := new(big.Int).SetString(clean[:i], 10)
		exp, err := strconv.ParseUint(clean[i+1:], 10, 16)
		if !ok1 || err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		if clean[i] == '^' {
			return new(big.Int).Exp(mant, big.NewInt(int64(exp)), nil), nil
		}
		pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
		return mant.Mul(mant, pow), nil
	}

	n, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}
