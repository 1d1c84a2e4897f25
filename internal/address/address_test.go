package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestHexValidator(t *testing.T) {
	v := HexValidator{}

	t.Run("checksummed", func(t *testing.T) {
		addr, err := v.Validate(checksummed)
		require.NoError(t, err)
		require.Equal(t, checksummed, addr.Hex())
	})

	t.Run("lowercase is canonicalized", func(t *testing.T) {
		addr, err := v.Validate(strings.ToLower(checksummed))
		require.NoError(t, err)
		require.Equal(t, checksummed, addr.Hex())
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		_, err := v.Validate("  " + checksummed + "\n")
		require.NoError(t, err)
	})

	bad := map[string]string{
		"empty":        "",
		"no prefix":    strings.TrimPrefix(checksummed, "0x"),
		"short":        "0x1234",
		"not hex":      "0xZZZeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"zero":         "0x0000000000000000000000000000000000000000",
		"bad checksum": "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"job name":     "set prizes",
	}
	for name, raw := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(raw)
			require.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestValidateAll(t *testing.T) {
	v := HexValidator{}
	addrs, err := ValidateAll(v, []string{checksummed, "0x00000000000000000000000000000000000000a1"})
	require.NoError(t, err)
	require.Len(t, addrs, 2)

	_, err = ValidateAll(v, []string{checksummed, "nope"})
	require.ErrorIs(t, err, ErrInvalidAddress)
}
