// Adapted from https://github.com/thought-machine/please
// Copyright Thought Machine, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0
package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_SecretKeyMissing(t *testing.T) {
	t.Setenv(EnvSignatureKey, "")
	_, err := secretKey()
	assert.Error(t, err)
}

func Test_SecretKeyPresent(t *testing.T) {
	t.Setenv(EnvSignatureKey, "my-secret-key")
	key, err := secretKey()
	assert.NoError(t, err)
	assert.Equal(t, []byte("my-secret-key"), key)
}

func Test_GenerateAndValidate(t *testing.T) {
	t.Setenv(EnvSignatureKey, "my-secret-key")

	auth := &Authenticator{TeamID: "team_someid", Enabled: true}
	body := []byte("this is an artifact body")

	tag, err := auth.GenerateTag("some-hash", body)
	assert.NoError(t, err)
	assert.NotEmpty(t, tag)

	valid, err := auth.Validate("some-hash", body, tag)
	assert.NoError(t, err)
	assert.True(t, valid)

	tampered, err := auth.Validate("some-hash", []byte("a different body"), tag)
	assert.NoError(t, err)
	assert.False(t, tampered)

	wrongHash, err := auth.Validate("a-different-hash", body, tag)
	assert.NoError(t, err)
	assert.False(t, wrongHash)
}

func Test_GenerateTagBytesAndValidateTagRoundtrip(t *testing.T) {
	t.Setenv(EnvSignatureKey, "my-secret-key")

	auth := &Authenticator{TeamID: "team_someid", Enabled: true}
	body := []byte("another artifact body")

	tagBytes, err := auth.GenerateTagBytes("some-hash", body)
	assert.NoError(t, err)

	valid, err := auth.ValidateTag("some-hash", body, tagBytes)
	assert.NoError(t, err)
	assert.True(t, valid)
}

func Test_StreamValidatorMatchesGenerateTag(t *testing.T) {
	t.Setenv(EnvSignatureKey, "my-secret-key")

	auth := &Authenticator{TeamID: "team_someid", Enabled: true}
	body := []byte("streamed artifact body")

	tag, err := auth.GenerateTag("some-hash", body)
	assert.NoError(t, err)

	sv, err := NewStreamValidator("team_someid", "some-hash")
	assert.NoError(t, err)
	_, writeErr := sv.Hasher().Write(body)
	assert.NoError(t, writeErr)

	assert.True(t, sv.Validate(tag))
	assert.Equal(t, tag, sv.CurrentValue())
}
