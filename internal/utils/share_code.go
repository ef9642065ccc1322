package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// EncodeShareCode turns a job ID into an opaque URL-safe share code so public
// job links don't expose sequential IDs. Key must be 16/24/32 bytes.
func EncodeShareCode(jobID uint, key string) (string, error) {
	plaintext := []byte(fmt.Sprintf("%d", jobID))

	k := []byte(key)
	if len(k) != 16 && len(k) != 24 && len(k) != 32 {
		return "", fmt.Errorf("invalid share key length: %d (must be 16/24/32)", len(k))
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))

	iv := ciphertext[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to read random iv: %w", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], plaintext)

	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// DecodeShareCode is the inverse of EncodeShareCode. A bare numeric ID is
// accepted too, for links minted before share codes existed.
func DecodeShareCode(code string, key string) (uint, error) {
	if code == "" {
		return 0, fmt.Errorf("empty share code")
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil || len(ciphertext) < aes.BlockSize {
		var plain uint
		if _, err2 := fmt.Sscanf(code, "%d", &plain); err2 == nil {
			return plain, nil
		}
		return 0, fmt.Errorf("malformed share code")
	}

	k := []byte(key)
	if len(k) != 16 && len(k) != 24 && len(k) != 32 {
		return 0, fmt.Errorf("invalid share key length: %d (must be 16/24/32)", len(k))
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return 0, err
	}

	iv := ciphertext[:aes.BlockSize]
	body := ciphertext[aes.BlockSize:]

	plaintext := make([]byte, len(body))
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(plaintext, body)

	var id uint
	if _, err := fmt.Sscanf(string(plaintext), "%d", &id); err != nil {
		return 0, fmt.Errorf("parse job id failed: %w", err)
	}

	return id, nil
}
