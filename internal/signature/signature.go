// Adapted from https://github.com/thought-machine/please
// Copyright Thought Machine, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package signature authenticates cache archives with an HMAC-SHA256 tag
// computed over a JSON metadata envelope followed by the archive body.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"os"
)

// EnvSignatureKey is the environment variable holding the raw signing key.
const EnvSignatureKey = "TURBO_REMOTE_CACHE_SIGNATURE_KEY"

var errMissingKey = errors.New("signature secret key not found: set " + EnvSignatureKey)

// Authenticator generates and validates tags over artifact bodies for a team.
type Authenticator struct {
	TeamID  string
	Enabled bool
}

// metadata is hashed ahead of the artifact body. Field order matters: it is
// part of the wire format and must stay `hash` then `teamId`.
type metadata struct {
	Hash   string `json:"hash"`
	TeamId string `json:"teamId"`
}

// secretKey reads the raw signing key from the environment. The bytes are
// used exactly as returned by os.Getenv: Go's environment strings already
// preserve whatever non-UTF-8 bytes the OS handed back, so no additional
// decoding step is required to get a raw byte key.
func secretKey() ([]byte, error) {
	secret := os.Getenv(EnvSignatureKey)
	if len(secret) == 0 {
		return nil, errMissingKey
	}
	return []byte(secret), nil
}

func tagGenerator(teamID string, hashString string) (hash.Hash, error) {
	secret, err := secretKey()
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(metadata{Hash: hashString, TeamId: teamID})
	if err != nil {
		return nil, err
	}

	h := hmac.New(sha256.New, secret)
	h.Write(encoded)
	return h, nil
}

// GenerateTag computes the base64-encoded HMAC-SHA256 tag for an artifact.
func (a *Authenticator) GenerateTag(hashString string, artifactBody []byte) (string, error) {
	tagBytes, err := a.GenerateTagBytes(hashString, artifactBody)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(tagBytes), nil
}

// GenerateTagBytes computes the raw HMAC-SHA256 tag for an artifact, without
// the base64 encoding step, for callers that work with binary tags.
// ValidateTag is its counterpart.
func (a *Authenticator) GenerateTagBytes(hashString string, artifactBody []byte) ([]byte, error) {
	h, err := tagGenerator(a.TeamID, hashString)
	if err != nil {
		return nil, err
	}
	h.Write(artifactBody)
	return h.Sum(nil), nil
}

// Validate reports whether expectedTag (base64-encoded) matches the tag
// computed over hashString and artifactBody.
func (a *Authenticator) Validate(hashString string, artifactBody []byte, expectedTag string) (bool, error) {
	computedTag, err := a.GenerateTag(hashString, artifactBody)
	if err != nil {
		return false, fmt.Errorf("failed to verify artifact tag: %w", err)
	}
	return hmac.Equal([]byte(computedTag), []byte(expectedTag)), nil
}

// ValidateTag reports whether expectedTag, given as raw (non-base64) bytes,
// matches the tag computed over hashString and artifactBody.
func (a *Authenticator) ValidateTag(hashString string, artifactBody []byte, expectedTag []byte) (bool, error) {
	computedTag, err := a.GenerateTagBytes(hashString, artifactBody)
	if err != nil {
		return false, fmt.Errorf("failed to verify artifact tag: %w", err)
	}
	return hmac.Equal(computedTag, expectedTag), nil
}

// StreamValidator accumulates a tag incrementally as an artifact body is
// streamed through it, so that validation does not require buffering the
// full archive in memory.
type StreamValidator struct {
	currentHash hash.Hash
}

// NewStreamValidator constructs a StreamValidator bound to teamID and the
// artifact's content hash. Write archive bytes to Hasher as they are read.
func NewStreamValidator(teamID string, hashString string) (*StreamValidator, error) {
	h, err := tagGenerator(teamID, hashString)
	if err != nil {
		return nil, err
	}
	return &StreamValidator{currentHash: h}, nil
}

// Hasher returns the hash.Hash that archive bytes should be written to.
func (sv *StreamValidator) Hasher() hash.Hash {
	return sv.currentHash
}

// Validate reports whether expectedTag matches the tag accumulated so far.
func (sv *StreamValidator) Validate(expectedTag string) bool {
	return hmac.Equal([]byte(sv.CurrentValue()), []byte(expectedTag))
}

// CurrentValue returns the base64-encoded tag accumulated so far.
func (sv *StreamValidator) CurrentValue() string {
	return base64.StdEncoding.EncodeToString(sv.currentHash.Sum(nil))
}
