package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid address")

// Validator turns untrusted strings into canonical addresses.
type Validator interface {
	Validate(raw string) (common.Address, error)
}

// HexValidator accepts 0x-prefixed 20 byte hex addresses. Mixed-case input
// must carry a valid EIP-55 checksum; all-lower or all-upper input is taken
// as is.
type HexValidator struct{}

func (HexValidator) Validate(raw string) (common.Address, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q: missing 0x prefix", ErrInvalidAddress, raw)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex()[2:] != body {
		return common.Address{}, fmt.Errorf("%w: %q: bad checksum", ErrInvalidAddress, raw)
	}
	return addr, nil
}

// ValidateAll validates every entry and fails on the first bad one.
func ValidateAll(v Validator, raws []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raws))
	for _, raw := range raws {
		addr, err := v.Validate(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
