package generator

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

var ErrInvalidLength = errors.New("code length must not be negative")

// GenerateCode returns a URL-safe random code of exactly length characters.
func GenerateCode(length int) (string, error) {
	if length < 0 {
		return "", ErrInvalidLength
	}

	var sb strings.Builder
	for sb.Len() < length {
		sb.WriteString(shortuuid.New())
	}

	return sb.String()[:length], nil
}

// GenerateID returns a new record identifier.
func GenerateID() string {
	return uuid.NewString()
}
