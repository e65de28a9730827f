package otp

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const secretSize = 20

// Generator выдает одноразовые коды.
type Generator interface {
	Generate() (string, error)
}

// HOTPGenerator считает 6-значный HOTP-код над свежим случайным секретом.
// Секрет не сохраняется: каждый код независим от предыдущих.
type HOTPGenerator struct{}

// Generate возвращает код из шести цифр.
func (HOTPGenerator) Generate() (string, error) {
	raw := make([]byte, secretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("ошибка генерации секрета OTP: %w", err)
	}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)

	code, err := hotp.GenerateCodeCustom(secret, 0, hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка вычисления кода OTP: %w", err)
	}
	return code, nil
}
