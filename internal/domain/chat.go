package domain

import "time"

// Conversation is the durable record for an unordered pair of users.
// Exactly one conversation exists per pair; participants are stored in
// canonical order so the pair itself is the uniqueness key.
type Conversation struct {
	ID            string
	ParticipantLo UserID
	ParticipantHi UserID
	CreatedAt     time.Time
}

// Message is one appended chat entry. CreatedAt is server-assigned.
type Message struct {
	ID        string    `json:"id"`
	SenderID  UserID    `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// ParticipantPair canonicalizes an unordered user pair.
func ParticipantPair(a, b UserID) (lo, hi UserID) {
	if a > b {
		return b, a
	}
	return a, b
}
