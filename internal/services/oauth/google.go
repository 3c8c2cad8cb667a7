package oauth

import (
	"encoding/json"
	"fmt"
)

// googleProfile mirrors the fields we need from the Google userinfo response.
type googleProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func parseGoogleProfile(body []byte) (*Profile, error) {
	var p googleProfile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	if p.Email == "" {
		return nil, fmt.Errorf("google profile has no email")
	}
	return &Profile{
		Email: p.Email,
		Name:  p.Name,
	}, nil
}
