package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ==================== UUID ====================

// GenerateUUID returns a random v4 id for bookings and users.
func GenerateUUID() uuid.UUID {
	return uuid.New()
}

// ParseUUID parses a stored record id. The nil UUID is rejected since no
// record is ever written with it.
func ParseUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, err
	}
	if parsed == uuid.Nil {
		return uuid.Nil, fmt.Errorf("nil uuid %q", id)
	}
	return parsed, nil
}

// ==================== CONFIRMATION CODE ====================

// CodeAlphabet leaves out 0/O and 1/I so codes read back unambiguously.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLength = 8

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// GenerateConfirmationCode draws CodeLength symbols from CodeAlphabet.
func GenerateConfirmationCode() (string, error) {
	symbols := big.NewInt(int64(len(CodeAlphabet)))

	var sb strings.Builder
	sb.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, symbols)
		if err != nil {
			return "", fmt.Errorf("generate confirmation code: %w", err)
		}
		sb.WriteByte(CodeAlphabet[n.Int64()])
	}

	return sb.String(), nil
}

// NormalizeConfirmationCode trims, drops dashes and upper-cases user input.
// It reports false when the result is not eight alphanumerics.
func NormalizeConfirmationCode(input string) (string, bool) {
	code := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input), "-", ""))
	if !codePattern.MatchString(code) {
		return "", false
	}
	return code, true
}

// FormatConfirmationCode renders a code as XXXX-XXXX for display.
func FormatConfirmationCode(code string) string {
	if len(code) != CodeLength {
		return code
	}
	return code[:4] + "-" + code[4:]
}
