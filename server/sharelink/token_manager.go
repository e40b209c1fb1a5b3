/*
 * Copyright 2026 The Formsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sharelink issues and verifies the tokens of session share links.
package sharelink

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"github.com/formsync/formsync/api/types"
)

var (
	// ErrUnexpectedSigningMethod is returned when the signing method is unexpected.
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")

	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("share link expired")

	// ErrEmptySecret is returned when the token manager has no key.
	ErrEmptySecret = errors.New("share link secret cannot be empty")
)

// ShareClaims is a JWT claims struct for a share link.
type ShareClaims struct {
	jwt.StandardClaims

	SessionID types.ID `json:"sid"`
}

// TokenManager manages share link tokens.
type TokenManager struct {
	secretKey []byte
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(secretKey []byte) (*TokenManager, error) {
	if len(secretKey) == 0 {
		return nil, ErrEmptySecret
	}

	return &TokenManager{secretKey: secretKey}, nil
}

// Generate generates a new token for the session that expires at the given
// time. Every call yields a distinct token.
func (m *TokenManager) Generate(sessionID types.ID, issuedAt, expiresAt time.Time) (string, error) {
	claims := ShareClaims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  issuedAt.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signedToken, nil
}

// Verify verifies the signature of the given token and its expiry at now.
func (m *TokenManager) Verify(token string, now time.Time) (*ShareClaims, error) {
	claims := &ShareClaims{}
	parser := &jwt.Parser{SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, fmt.Errorf("%s: %w", token.Method.Alg(), ErrUnexpectedSigningMethod)
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !claims.VerifyExpiresAt(now.Unix(), true) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
