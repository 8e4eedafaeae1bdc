package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// codeAlphabet leaves out characters that are easy to misread in a mail
// client (0/O, 1/l/I).
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// CodeLength is the number of characters in a confirmation code.
const CodeLength = 24

// NewConfirmationCode returns a random single-use confirmation code.
func NewConfirmationCode() (string, error) {
	code, err := gonanoid.Generate(codeAlphabet, CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	return code, nil
}
