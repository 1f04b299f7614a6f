package subsonic

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"lms/internal/catalog"
	"lms/internal/ids"

	"github.com/golang-jwt/jwt/v5"
)

// LoginThrottle guards repeated failed login attempts per username.
// A nil LoginThrottle (the zero value of AuthConfig.Throttle) disables
// throttling entirely: ResolveCredentials treats every attempt as
// unthrottled in that case; throttling is an optional collaborator,
// not part of the core credential logic.
type LoginThrottle interface {
	// IsThrottled reports whether username currently has too many
	// recent failures to attempt another login.
	IsThrottled(ctx context.Context, username string) (bool, error)
	// RecordFailure registers one more failed attempt for username.
	RecordFailure(ctx context.Context, username string) error
	// RecordSuccess clears username's failure count.
	RecordSuccess(ctx context.Context, username string) error
}

// AuthOutcome is the closed set of authentication results: either a resolved user or one of these typed failures.
type AuthOutcome int

const (
	AuthOK AuthOutcome = iota
	AuthWrongUsernameOrPassword
	AuthTokenNotSupportedForLDAP
	AuthLoginThrottled
	AuthUserNotAuthorized
	AuthInvalidAPIKey
	AuthMechanismNotSupported
	AuthConflictingMechanisms
)

// Credentials is the raw set of auth-relevant request parameters; the
// resolver figures out which single mechanism they name.
type Credentials struct {
	Username string
	Password string // 'p' plaintext, or hex-encoded behind an "enc:" prefix
	Token    string // 't' = md5(password+salt)
	Salt     string // 's'
	APIKey   string // 'apiKey'
	// TrustedUsername is set by a reverse-proxy-trusted header; when
	// present it bypasses password/token checks entirely.
	TrustedUsername string
}

// deriveKey turns the configured pepper into a fixed-size AES-256 key.
// Reusing SecurityPepper (rather than introducing a new config field)
// keeps password-at-rest protection under the same secret the rest of
// the server's HMAC/JWT paths already depend on.
func deriveKey(pepper string) [32]byte {
	return sha256.Sum256([]byte("lms-password-key:" + pepper))
}

// EncryptPassword stores a plaintext password in a form the server can
// decrypt again. Subsonic's token auth scheme (t = md5(password+salt))
// requires the server to recover the original plaintext, which rules
// out a one-way hash like bcrypt for this column; a reversible cipher
// keyed by a server-side secret is the standard trade-off Subsonic
// servers that support token auth make.
func EncryptPassword(pepper, plaintext string) (string, error) {
	key := deriveKey(pepper)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

func DecryptPassword(pepper, stored string) (string, error) {
	raw, err := hex.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("subsonic: malformed stored password: %w", err)
	}
	key := deriveKey(pepper)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("subsonic: stored password too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("subsonic: could not decrypt stored password: %w", err)
	}
	return string(plain), nil
}

// ResolveCredentials resolves Credentials to a UserId or a typed
// failure. Exactly one of (trusted header), (password), (token+salt),
// (api key) is expected; more than one provided at once is refused as
// conflicting. When cfg.Throttle is set, a username with
// too many recent failures is refused before any password/token check
// even runs, and every subsequent failure/success updates its counter.
func ResolveCredentials(ctx context.Context, tx *catalog.Tx, cfg AuthConfig, creds Credentials) (ids.Id[ids.UserKind], AuthOutcome, error) {
	provided := 0
	if creds.TrustedUsername != "" {
		provided++
	}
	if creds.Password != "" {
		provided++
	}
	if creds.Token != "" || creds.Salt != "" {
		provided++
	}
	if creds.APIKey != "" {
		provided++
	}
	if provided > 1 {
		return ids.Id[ids.UserKind]{}, AuthConflictingMechanisms, nil
	}
	if provided == 0 {
		return ids.Id[ids.UserKind]{}, AuthMechanismNotSupported, nil
	}

	// An API key names its own user; a u parameter alongside it is a
	// second, conflicting identity claim.
	if creds.APIKey != "" {
		if creds.Username != "" {
			return ids.Id[ids.UserKind]{}, AuthConflictingMechanisms, nil
		}
		subject, ok := resolveAPIKey(cfg.Pepper, creds.APIKey)
		if !ok {
			return ids.Id[ids.UserKind]{}, AuthInvalidAPIKey, nil
		}
		user, err := catalog.FindUserByLoginName(tx, subject)
		if err != nil {
			return ids.Id[ids.UserKind]{}, AuthOK, err
		}
		if user == nil {
			return ids.Id[ids.UserKind]{}, AuthInvalidAPIKey, nil
		}
		return user.ID, AuthOK, nil
	}

	username := creds.Username
	if creds.TrustedUsername != "" {
		username = creds.TrustedUsername
	}
	if username == "" {
		return ids.Id[ids.UserKind]{}, AuthWrongUsernameOrPassword, nil
	}

	if cfg.Throttle != nil && creds.TrustedUsername == "" {
		throttled, err := cfg.Throttle.IsThrottled(ctx, username)
		if err != nil {
			return ids.Id[ids.UserKind]{}, AuthOK, err
		}
		if throttled {
			return ids.Id[ids.UserKind]{}, AuthLoginThrottled, nil
		}
	}

	fail := func(outcome AuthOutcome) (ids.Id[ids.UserKind], AuthOutcome, error) {
		if cfg.Throttle != nil && creds.TrustedUsername == "" && outcome == AuthWrongUsernameOrPassword {
			cfg.Throttle.RecordFailure(ctx, username)
		}
		return ids.Id[ids.UserKind]{}, outcome, nil
	}

	user, err := catalog.FindUserByLoginName(tx, username)
	if err != nil {
		return ids.Id[ids.UserKind]{}, AuthOK, err
	}
	if user == nil {
		return fail(AuthWrongUsernameOrPassword)
	}

	if creds.TrustedUsername != "" {
		return user.ID, AuthOK, nil
	}

	succeed := func() (ids.Id[ids.UserKind], AuthOutcome, error) {
		if cfg.Throttle != nil {
			cfg.Throttle.RecordSuccess(ctx, username)
		}
		return user.ID, AuthOK, nil
	}

	if creds.Password != "" {
		if !cfg.SupportPasswordAuth {
			return ids.Id[ids.UserKind]{}, AuthMechanismNotSupported, nil
		}
		plain, err := DecryptPassword(cfg.Pepper, user.PasswordHash)
		if err != nil || plain != stripPasswordEncoding(creds.Password) {
			return fail(AuthWrongUsernameOrPassword)
		}
		return succeed()
	}

	// Token auth: t = md5(password + salt).
	plain, err := DecryptPassword(cfg.Pepper, user.PasswordHash)
	if err != nil {
		return fail(AuthWrongUsernameOrPassword)
	}
	sum := md5.Sum([]byte(plain + creds.Salt))
	if !strings.EqualFold(hex.EncodeToString(sum[:]), creds.Token) {
		return fail(AuthWrongUsernameOrPassword)
	}
	return succeed()
}

// apiKeySigningKey derives the HMAC key API keys are signed with from
// the same server-side pepper the password cipher uses, under its own
// label so the two keys never coincide.
func apiKeySigningKey(pepper string) []byte {
	sum := sha256.Sum256([]byte("lms-api-key:" + pepper))
	return sum[:]
}

// IssueAPIKey mints a signed API key bound to loginName. The key is a
// compact JWT so it carries its own subject and issue time; revocation
// is by changing the user's login name or the server pepper.
func IssueAPIKey(pepper, loginName string) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:   "lms",
		Subject:  loginName,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(apiKeySigningKey(pepper))
}

// resolveAPIKey validates an API key and returns the login name it was
// issued for.
func resolveAPIKey(pepper, apiKey string) (string, bool) {
	parsed, err := jwt.ParseWithClaims(apiKey, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("subsonic: unexpected api key signing method")
		}
		return apiKeySigningKey(pepper), nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// stripPasswordEncoding undoes the Subsonic convention of prefixing a
// hex-encoded password with "enc:" for transports that can't safely
// carry arbitrary bytes in a query parameter.
func stripPasswordEncoding(p string) string {
	if rest, ok := strings.CutPrefix(p, "enc:"); ok {
		if decoded, err := hex.DecodeString(rest); err == nil {
			return string(decoded)
		}
	}
	return p
}

// AuthConfig is the subset of config.Config the resolver needs.
type AuthConfig struct {
	Pepper              string
	SupportPasswordAuth bool
	// Throttle is optional; nil disables login throttling entirely.
	Throttle LoginThrottle
}

// AuthOutcomeError translates a non-OK AuthOutcome into the APIError
// the wire protocol reports it as.
func AuthOutcomeError(outcome AuthOutcome) *APIError {
	switch outcome {
	case AuthWrongUsernameOrPassword:
		return ErrWrongUsernameOrPassword()
	case AuthTokenNotSupportedForLDAP:
		return ErrTokenAuthNotSupportedForLDAPUsers()
	case AuthLoginThrottled:
		return ErrLoginThrottled()
	case AuthUserNotAuthorized:
		return ErrUserNotAuthorized()
	case AuthInvalidAPIKey:
		return ErrInvalidAPIKey()
	case AuthMechanismNotSupported:
		return ErrAuthMechanismNotSupported()
	case AuthConflictingMechanisms:
		return ErrConflictingAuthMechanisms()
	default:
		return nil
	}
}
