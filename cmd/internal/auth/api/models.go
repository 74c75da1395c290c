package authapi

// User is the user object returned by the auth server.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Result is a successful login or signup.
type Result struct {
	Token   string
	User    User
	Message string
}

// SignupRequest is the registration form. Profile fields are sent flattened.
type SignupRequest struct {
	Name          string
	Email         string
	Password      string
	BoatLicenseID string
	Experience    string
	Port          string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	BoatLicenseID string `json:"boatLicenseId"`
	Experience    string `json:"experience"`
	Port          string `json:"port"`
}

type authResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
	Message string `json:"message"`
}
