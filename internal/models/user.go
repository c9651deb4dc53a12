package models

// User is a local bridge account used to gate the LAN API. It is unrelated
// to the Envi cloud account: the cloud credentials live in the client config,
// while these rows only authorize callers of this bridge.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
