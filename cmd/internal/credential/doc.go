// Package credential persists the current session across restarts.
//
// A stored record is four logical keys written and removed as one unit:
//
//	token               opaque bearer credential
//	user                JSON {id, name, email, isAdmin}
//	userId              copy of user.id
//	usertokenTimestamp  issue instant, Unix milliseconds
//
// Every backend guarantees that Load never observes a mix of two different
// records. A partially present record is reported as ErrCorrupt.
package credential
