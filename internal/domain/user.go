// Package domain contains entity types and the pure functions over them.
package domain

const MaxDisplayNameLen = 36

type UserID string

// TruncateDisplayName caps a caller-supplied display name. The name is
// best-effort UI metadata for call invites, never an identity.
func TruncateDisplayName(name string) string {
	if len(name) > MaxDisplayNameLen {
		return name[:MaxDisplayNameLen]
	}
	return name
}
