package service

import "github.com/youthorg/admingate/internal/domain"

// Principal is the authenticated caller behind a live session.
type Principal struct {
	UserID      string
	SessionID   string
	Username    string
	DisplayName string
	Role        string
	Permissions []string
	Legacy      bool
}

func principalFromToken(tok domain.SessionToken) *Principal {
	return &Principal{
		UserID:      tok.UserID,
		SessionID:   tok.SessionID,
		Username:    tok.Username,
		DisplayName: tok.DisplayName,
		Role:        tok.Role,
		Permissions: append([]string(nil), tok.Permissions...),
		Legacy:      tok.IsLegacy(),
	}
}

func (p *Principal) ActorName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
