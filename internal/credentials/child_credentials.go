package credentials

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Themed words for generating child-friendly passwords
var themedWords = []string{
	"dragon", "tiger", "eagle", "dolphin", "panda", "lion", "wolf", "bear",
	"fox", "hawk", "shark", "phoenix", "unicorn", "rocket", "ninja", "wizard",
	"knight", "pirate", "robot", "astronaut", "hero", "champion", "explorer", "ranger",
	"comet", "thunder", "planet", "galaxy", "number", "fraction", "pyramid", "circle",
	"triangle", "abacus", "puzzle", "rainbow", "meteor", "castle", "falcon", "otter",
}

// GenerateChildPassword returns a capitalized themed word followed by four digits, e.g. "Rocket4821"
func GenerateChildPassword() (string, error) {
	word, err := randomElement(themedWords)
	if err != nil {
		return "", err
	}

	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate password digits: %w", err)
	}

	return strings.ToUpper(word[:1]) + word[1:] + fmt.Sprintf("%04d", n.Int64()), nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
