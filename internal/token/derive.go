// ABOUTME: Deterministic password derivation for SSO-provisioned identities
// ABOUTME: argon2id(username, key) suffix, separator-stripped, padded to the password rule

package token

import (
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	derivedSuffixLen = 12
	derivedMinLen    = 8

	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 18
)

// derivedEncoding draws from the password charset plus '/', which is then stripped.
var derivedEncoding = base64.NewEncoding(
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789@/",
).WithPadding(base64.NoPadding)

// DerivePassword computes the password an SSO identity is provisioned and
// re-authenticated with. The result is between 8 and 12 characters drawn
// from [A-Za-z0-9@].
func DerivePassword(username string, key []byte) string {
	sum := argon2.IDKey([]byte(username), key, argonTime, argonMemory, argonThreads, argonKeyLen)
	enc := derivedEncoding.EncodeToString(sum)

	suffix := enc[len(enc)-derivedSuffixLen:]
	suffix = strings.NewReplacer("/", "", `\`, "").Replace(suffix)

	if len(suffix) < derivedMinLen {
		suffix += strings.Repeat("0", derivedMinLen-len(suffix))
	}
	return suffix
}
