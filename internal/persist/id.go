package persist

import "github.com/google/uuid"

// GenerateID returns a new identifier for a task or category. IDs are UUID
// v7: a millisecond timestamp prefix followed by random bits, so they sort by
// creation time and are unique in practice within one device.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
