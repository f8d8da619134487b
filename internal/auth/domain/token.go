package domain

// TokenPair is what a successful login returns: a short-lived signed access
// token and a long-lived refresh token. Neither is persisted; the refresh
// token is bound to a session row via its embedded session id.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
