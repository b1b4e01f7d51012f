package game

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"golang.org/x/text/unicode/norm"
)

const (
	codeLength  = 6
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	minNameRunes = 2
	maxNameRunes = 20
)

func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode upper-cases a join code and checks its shape.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return "", fmt.Errorf("%w: want %d characters", engine.ErrInvalidCode, codeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeCharset, r) {
			return "", fmt.Errorf("%w: %q", engine.ErrInvalidCode, r)
		}
	}
	return code, nil
}

// NormalizeName trims and NFC-normalises a display name, then checks its
// length in characters.
func NormalizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	n := utf8.RuneCountInString(name)
	if n < minNameRunes || n > maxNameRunes {
		return "", fmt.Errorf("%w: must be %d to %d characters", engine.ErrInvalidName, minNameRunes, maxNameRunes)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control character", engine.ErrInvalidName)
		}
	}
	return name, nil
}

func (id Identity) normalize() (Identity, error) {
	if strings.TrimSpace(id.ID) == "" {
		return Identity{}, engine.ErrInvalidPlayer
	}
	name, err := NormalizeName(id.Name)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: strings.TrimSpace(id.ID), Name: name}, nil
}
