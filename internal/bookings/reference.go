package bookings

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateBookingReference builds a human readable EVT-YYYYMMDD-XXXXXX reference
func generateBookingReference(now time.Time) (string, error) {
	randomPart := make([]byte, 6)
	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			return "", err
		}
		randomPart[i] = referenceAlphabet[num.Int64()]
	}
	return fmt.Sprintf("EVT-%s-%s", now.Format("20060102"), string(randomPart)), nil
}
