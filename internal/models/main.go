// Package models defines the core data structures of the registration backend.
package models

// User is a registered username identity.
type User struct {
	// ID is assigned by the store on insertion and never reused.
	ID int64 `json:"id"`
	// Username is unique across all users and compared case-sensitively.
	Username string `json:"username"`
}
