package transport

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RevokeRequest keeps Revoke untyped so a non-boolean value can be told apart from a missing one.
type RevokeRequest struct {
	Revoke any `json:"revoke"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type MsgResponse struct {
	Msg string `json:"msg"`
}
