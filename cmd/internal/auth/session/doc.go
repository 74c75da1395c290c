// Package session owns the client's authenticated session.
//
// A Manager restores the session persisted by a credential.Store, applies the
// expiry policy, performs login, registration and logout against the remote
// auth API, and drives the realtime connection for the active identity.
//
// States: NoSession, Restoring, Active, Expired. Expired is transient: cleanup
// runs immediately and the manager settles in NoSession.
//
// Session-mutating operations are serialized. Logout cancels the operation in
// flight so a racing login can never write after logout's cleanup.
package session
