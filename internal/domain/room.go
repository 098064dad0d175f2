package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type RoomID string

// roomSeparator must never appear inside a user identifier; five dollar
// signs keep adversarial ids from gluing into another pair's key.
const roomSeparator = "$$$$$"

// DeriveRoomID returns the shared room key for an unordered pair of
// users. Symmetric and deterministic: both participants reach the same
// 256-bit token regardless of argument order.
func DeriveRoomID(a, b UserID) RoomID {
	lo, hi := string(a), string(b)
	if lo > hi {
		lo, hi = hi, lo
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{lo, hi}, roomSeparator)))
	return RoomID(hex.EncodeToString(sum[:]))
}
