package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/cyradotpink/influencer/internal/pkg/message"
)

// RPCVersion is the protocol version the client implements.
const RPCVersion uint32 = 1

// ChallengeResponse computes the authentication string for a salted
// challenge: base64(sha256(base64(sha256(password || salt)) || challenge)).
// The intermediate digest is concatenated with the challenge as base64
// text, not as raw bytes. Base64 is the standard padded alphabet.
func ChallengeResponse(password, salt, challenge string) string {
	inner := sha256.Sum256([]byte(password + salt))
	encoded := base64.StdEncoding.EncodeToString(inner[:])
	outer := sha256.Sum256([]byte(encoded + challenge))
	return base64.StdEncoding.EncodeToString(outer[:])
}

// IdentifyFor builds the Identify payload answering the given Hello
// challenge parameters. When the server sent no challenge the
// authentication field is left absent entirely. A missing password is
// treated as the empty string.
func IdentifyFor(password string, challenge *message.HelloAuthentication, eventSubscriptions *uint32) message.Identify {
	identify := message.Identify{
		RPCVersion:         RPCVersion,
		EventSubscriptions: eventSubscriptions,
	}
	if challenge != nil {
		authentication := ChallengeResponse(password, challenge.Salt, challenge.Challenge)
		identify.Authentication = &authentication
	}
	return identify
}
