package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomLetters returns n random ASCII letters.
func RandomLetters(n int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(letters)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random letter: %w", err)
		}
		sb.WriteByte(letters[idx.Int64()])
	}
	return sb.String(), nil
}

// GenerateAnchor builds a mention anchor for assignee: dots become dashes and
// a random suffix of n letters keeps anchors distinct when several tasks are
// rendered on the same page.
func GenerateAnchor(assignee string, n int) (string, error) {
	suffix, err := RandomLetters(n)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(assignee, ".", "-") + "-" + suffix, nil
}
