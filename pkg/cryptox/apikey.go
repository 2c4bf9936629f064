package cryptox

const (
	APIKeyPrefix    = "pk_"
	APISecretPrefix = "sk_"
)

// GenerateAPICredentials returns a public project key and its secret. Only the
// key is meant to be stored in the clear.
func GenerateAPICredentials() (key, secret string, err error) {
	k, err := GenerateToken(TokenSize128)
	if err != nil {
		return "", "", err
	}
	s, err := GenerateToken(TokenSize256)
	if err != nil {
		return "", "", err
	}
	return APIKeyPrefix + k, APISecretPrefix + s, nil
}
