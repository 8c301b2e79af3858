package auth

import "github.com/golang-jwt/jwt/v5"

func signForTest(m *Manager, payload string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(payload, m.secret)
	if err != nil {
		return "", err
	}
	return encoding.EncodeToString(sig), nil
}
