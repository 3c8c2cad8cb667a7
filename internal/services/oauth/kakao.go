package oauth

import (
	"encoding/json"
	"fmt"
)

// kakaoProfile mirrors the fields we need from the Kakao user/me response.
type kakaoProfile struct {
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func parseKakaoProfile(body []byte) (*Profile, error) {
	var p kakaoProfile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	if p.KakaoAccount.Email == "" {
		return nil, fmt.Errorf("kakao account has no email (check the account_email scope)")
	}
	return &Profile{
		Email: p.KakaoAccount.Email,
		Name:  p.KakaoAccount.Profile.Nickname,
	}, nil
}
