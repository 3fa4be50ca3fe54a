package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type User struct {
	ID    string `json:"_id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// UserRef is a user reference as embedded in tasks and notifications.
// The server sends either the populated user or just its id.
type UserRef struct {
	ID    string `json:"_id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode user reference: %w", err)
		}
		*r = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode user reference: %w", err)
	}
	*r = UserRef(p)
	return nil
}

// DisplayName falls back to the id when the reference was not populated.
func (r UserRef) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

type LoginData struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

type RegisterData struct {
	Name     string `json:"name" validate:"min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

type ProfileData struct {
	Name  string `json:"name" validate:"min=2"`
	Email string `json:"email" validate:"required,email"`
}
