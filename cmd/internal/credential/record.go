package credential

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Logical keys, shared by every backend.
const (
	KeyToken     = "token"
	KeyUser      = "user"
	KeyUserID    = "userId"
	KeyTimestamp = "usertokenTimestamp"
)

// Keys lists the logical keys in write order.
var Keys = []string{KeyToken, KeyUser, KeyUserID, KeyTimestamp}

// User is the persisted user profile.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Record is one persisted session.
type Record struct {
	Token    string
	User     User
	IssuedAt time.Time
}

// Validate reports whether every required field is populated.
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.Token) == "":
		return fmt.Errorf("%w: token", ErrIncomplete)
	case strings.TrimSpace(r.User.ID) == "":
		return fmt.Errorf("%w: user id", ErrIncomplete)
	case strings.TrimSpace(r.User.Name) == "":
		return fmt.Errorf("%w: user name", ErrIncomplete)
	case strings.TrimSpace(r.User.Email) == "":
		return fmt.Errorf("%w: user email", ErrIncomplete)
	case r.IssuedAt.IsZero():
		return fmt.Errorf("%w: issued at", ErrIncomplete)
	}
	return nil
}

// encode flattens r into its logical key/value form.
func encode(r Record) (map[string]string, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	u, err := json.Marshal(r.User)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	return map[string]string{
		KeyToken:     r.Token,
		KeyUser:      string(u),
		KeyUserID:    r.User.ID,
		KeyTimestamp: strconv.FormatInt(r.IssuedAt.UnixMilli(), 10),
	}, nil
}

// decode rebuilds a Record from the values a backend found.
// Keys absent from values were not stored.
func decode(backend string, values map[string]string) (Record, error) {
	var missing []string
	for _, k := range Keys {
		if _, ok := values[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == len(Keys) {
		return Record{}, ErrNotFound
	}
	if len(missing) > 0 {
		return Record{}, corrupt(backend, "missing keys "+strings.Join(missing, ","), nil)
	}

	var u User
	if err := json.Unmarshal([]byte(values[KeyUser]), &u); err != nil {
		return Record{}, corrupt(backend, "user is not valid json", err)
	}
	if u.ID != values[KeyUserID] {
		return Record{}, corrupt(backend, "userId does not match user.id", nil)
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(values[KeyTimestamp]), 10, 64)
	if err != nil {
		return Record{}, corrupt(backend, "bad timestamp", err)
	}

	r := Record{
		Token:    values[KeyToken],
		User:     u,
		IssuedAt: time.UnixMilli(ms).UTC(),
	}
	if err := r.Validate(); err != nil {
		return Record{}, corrupt(backend, "incomplete record", err)
	}
	return r, nil
}
