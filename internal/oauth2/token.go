package oauth2

import (
	"encoding/json"

	"meeting-scheduler/internal/models"

	xoauth2 "golang.org/x/oauth2"
)

// CredentialFromToken converts a token endpoint response into a credential
func CredentialFromToken(tok *xoauth2.Token) *models.Credential {
	cred := &models.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		TokenType:    tok.TokenType,
	}

	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		raw, _ := json.Marshal(idToken)
		cred.Extra = map[string]json.RawMessage{"id_token": raw}
	}

	return cred
}

// TokenFromCredential converts a stored credential for use with x/oauth2
func TokenFromCredential(cred *models.Credential) *xoauth2.Token {
	return &xoauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
		TokenType:    cred.TokenType,
	}
}
