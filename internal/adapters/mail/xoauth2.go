package mail

import (
	"errors"
	"net/smtp"
)

// xoauth2Auth implements the SASL XOAUTH2 mechanism used by Gmail and
// Office 365 SMTP endpoints.
type xoauth2Auth struct {
	username string
	token    string
}

// XOAuth2 returns an smtp.Auth that presents the given bearer token.
func XOAuth2(username, token string) smtp.Auth {
	return &xoauth2Auth{username: username, token: token}
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, errors.New("xoauth2: connection is not encrypted")
	}
	resp := "user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01"
	return "XOAUTH2", []byte(resp), nil
}

// Next handles the error challenge: the server sends a base64 JSON blob and
// expects an empty response before issuing the final status.
func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}
