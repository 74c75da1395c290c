// Package authapi is the client for the Ocean Sentinel remote auth API.
//
// Endpoints (relative to the configured base URL):
//
//	POST /auth/login   {email, password}                                   -> {success, token, user, message}
//	POST /auth/signup  {name, email, password, boatLicenseId, experience, port} -> same
//	POST /auth/logout  Authorization: Bearer <token>
//
// A body with success=false is a rejection regardless of HTTP status.
// Transport failures and undecodable bodies are transport errors.
package authapi
