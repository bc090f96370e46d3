package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidCPF(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"52998224725", true},
		{"11144477735", true},
		{"52998224724", false}, // wrong second digit
		{"52998224715", false}, // wrong first digit
		{"11111111111", false},
		{"5299822472", false},
		{"529982247250", false},
		{"5299822472a", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidCPF(tc.in), tc.in)
	}
}

func TestNormalizeCPF(t *testing.T) {
	assert.Equal(t, "52998224725", NormalizeCPF(" 529.982.247-25 "))
	assert.True(t, ValidCPF(NormalizeCPF("111.444.777-35")))
	assert.Equal(t, "52998224725", NormalizeCPF("CPF: 529/982 247_25\n"))
	assert.Equal(t, "", NormalizeCPF("..- "))

	// Every spelling of the same number validates once normalized.
	for _, in := range []string{"52998224725", "529.982.247-25", "529 982 247 25", "529982247-25"} {
		assert.True(t, ValidCPF(NormalizeCPF(in)), in)
	}
	assert.False(t, ValidCPF("529.982.247-25"), "ValidCPF expects digits only")
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret!"))

	_, err = HashPassword("12345", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	// Out-of-range cost falls back to the default instead of failing.
	hash, err = HashPassword("s3cret!", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("k1", 42, "GESTOR", time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), at.Exp, 5*time.Second)

	c, err := ParseAccessToken("k1", at.Token)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 42, Role: "GESTOR"}, c)

	_, err = ParseAccessToken("other", at.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	at, err := NewAccessToken("k1", 42, "USER", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("k1", at.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(24 * time.Hour)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	h := HashRefreshRaw(rt.Raw)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw(rt.Raw))
	assert.False(t, strings.Contains(h, rt.Raw))
}
