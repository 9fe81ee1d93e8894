package core

import (
	"crypto/rand"

	"roshambo/internal/domain"
)

const codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCode returns a uniformly random room code of n uppercase letters.
// Rejection sampling keeps the distribution flat across the alphabet.
// Uniqueness is the registry's problem, not the generator's.
func GenerateCode(n int) domain.RoomCode {
	const max = byte(255 - (256 % len(codeLetters)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, codeLetters[int(b)%len(codeLetters)])
				if len(out) == n {
					return domain.RoomCode(out)
				}
			}
		}
	}

	return domain.RoomCode(out)
}
