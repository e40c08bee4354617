package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyradotpink/influencer/internal/pkg/message"
)

func TestChallengeResponseVectors(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		salt      string
		challenge string
		want      string
	}{
		{
			name:      "reference vector",
			password:  "p@ss",
			salt:      "s",
			challenge: "c",
			want:      "s3jpPi/uQYwSM6/0EY5jUC6MaTQSmeV8CeU3W3NaTw4=",
		},
		{
			name:      "empty password",
			password:  "",
			salt:      "salt",
			challenge: "challenge",
			want:      "5fmcrqR0I7snYOpUX/Ac22UdSA81TwCyHqCr6eFQyyI=",
		},
		{
			name:      "server-length salt and challenge",
			password:  "supersecret",
			salt:      "PZVbYpvAnZut2SS6JNJytDm9",
			challenge: "ztTBnnuqrqaKDzRM3xcVdbYm",
			want:      "8feeOF01ujNBiQFBqMMiEb6/yB/tJDZyX2sosCp5zLU=",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChallengeResponse(tt.password, tt.salt, tt.challenge)
			require.Equal(t, tt.want, got)
			// Deterministic across calls.
			require.Equal(t, got, ChallengeResponse(tt.password, tt.salt, tt.challenge))
		})
	}
}

func TestIdentifyForWithoutChallenge(t *testing.T) {
	identify := IdentifyFor("ignored", nil, nil)
	require.Equal(t, RPCVersion, identify.RPCVersion)
	require.Nil(t, identify.Authentication)
	require.Nil(t, identify.EventSubscriptions)
}

func TestIdentifyForWithChallenge(t *testing.T) {
	subs := uint32(5)
	identify := IdentifyFor("p@ss", &message.HelloAuthentication{Challenge: "c", Salt: "s"}, &subs)
	require.NotNil(t, identify.Authentication)
	require.Equal(t, "s3jpPi/uQYwSM6/0EY5jUC6MaTQSmeV8CeU3W3NaTw4=", *identify.Authentication)
	require.Equal(t, uint32(5), *identify.EventSubscriptions)
}
