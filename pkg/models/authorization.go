package models

// AuthorizationStatus is the normalized calendar-access permission
// state. The event store may report older grant shapes (a single
// "authorized" value); the authorization coordinator folds those into
// this five-value model so nothing else has to care about grant
// schema versions.
type AuthorizationStatus string

const (
	AuthUndetermined AuthorizationStatus = "undetermined"
	AuthRestricted   AuthorizationStatus = "restricted"
	AuthDenied       AuthorizationStatus = "denied"
	AuthFullAccess   AuthorizationStatus = "fullAccess"
	AuthWriteOnly    AuthorizationStatus = "writeOnly"
)

// CanRead reports whether existing events may be queried.
func (s AuthorizationStatus) CanRead() bool {
	return s == AuthFullAccess
}

// CanWrite reports whether new events may be created.
func (s AuthorizationStatus) CanWrite() bool {
	return s == AuthFullAccess || s == AuthWriteOnly
}
