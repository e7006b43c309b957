package usecase

import (
	"crypto/rand"
	"io"
)

// GenerateCode creates a secure, random, human-readable activation code.
// Format: XXXX-XXXX-XXXX over an alphabet that avoids ambiguous characters
// like O/0, I/1, l.
func GenerateCode() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 12

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}

	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}

	return string(buffer[0:4]) + "-" + string(buffer[4:8]) + "-" + string(buffer[8:12]), nil
}
