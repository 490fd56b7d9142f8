package server

import (
	"errors"
	"math/rand"
	"strings"
)

const roomCodeLength = 6

const roomCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRoomCode returns a short room code not present in usedCodes.
func GenerateRoomCode(usedCodes map[string]bool) string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
		}
		roomCode := string(code)

		if !usedCodes[roomCode] {
			return roomCode
		}
	}
}

func ValidateRoomCode(code string) error {
	if len(code) != roomCodeLength {
		return errors.New("Room code must be exactly 6 characters")
	}

	for _, ch := range code {
		if !strings.ContainsRune(roomCodeAlphabet, ch) {
			return errors.New("Room code must contain only lowercase letters and digits")
		}
	}

	return nil
}

func NormalizeRoomCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
