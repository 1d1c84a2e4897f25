package services

import (
	"crypto/sha256"
	"encoding/hex"

	"luckyroll/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

// DeriveLuckyNumber binds oracle randomness to a participant, so two
// participants never share a lucky number even if the oracle repeats itself.
func DeriveLuckyNumber(participant common.Address, randomness [32]byte) models.LuckyNumber {
	seed := participant.Hex() + hex.EncodeToString(randomness[:])
	return models.LuckyNumber(sha256.Sum256([]byte(seed)))
}
