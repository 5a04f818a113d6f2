package auth

import (
	"strings"

	"github.com/pquerna/otp/totp"
)

const totpIssuer = "Seva Darpan"

// GenerateTwoFactorSecret issues a fresh TOTP secret for the account. The
// secret is stored disabled until the user confirms a first code.
func GenerateTwoFactorSecret(accountEmail string) (secret, otpauthURL string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: strings.TrimSpace(accountEmail),
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTwoFactorCode checks a one-time code against the stored secret.
func VerifyTwoFactorCode(secret, code string) bool {
	secret = strings.TrimSpace(secret)
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
