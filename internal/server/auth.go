package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Player is the identity resolved once at authentication, immutable for the
// connection's lifetime. Verified accounts get a "tg:" id, guests "guest:".
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var (
	ErrAuthRequired = errors.New("AUTH_REQUIRED: authenticate before sending other messages")
	ErrAuthFailed   = errors.New("AUTH_FAILED: launch payload signature invalid")
)

// Authenticator turns an inbound credential into a Player. A signed launch
// payload yields the embedded account; everything else falls back to a guest
// identity when anonymous access is permitted.
type Authenticator struct {
	secret         string
	allowAnonymous bool
}

func NewAuthenticator(secret string, allowAnonymous bool) *Authenticator {
	return &Authenticator{
		secret:         secret,
		allowAnonymous: allowAnonymous,
	}
}

func (a *Authenticator) Authenticate(initData string) (Player, error) {
	if a.secret != "" && initData != "" {
		player, err := a.verifyInitData(initData)
		if err == nil {
			return player, nil
		}
		if !a.allowAnonymous {
			return Player{}, ErrAuthFailed
		}
		// Bad signature demotes to guest rather than closing, avoiding a
		// reconnect loop for clients launched outside the bot.
		return newGuest(), nil
	}

	if !a.allowAnonymous {
		return Player{}, ErrAuthFailed
	}
	return newGuest(), nil
}

func newGuest() Player {
	id := uuid.New().String()
	return Player{
		ID:   "guest:" + id[:8],
		Name: "Guest " + strings.ToUpper(id[:4]),
	}
}

// verifyInitData checks the launch payload signature: all key/value pairs
// except "hash", keys sorted, joined as key=value lines, HMAC-SHA256 keyed
// by SHA256(secret), hex-compared against the supplied hash.
func (a *Authenticator) verifyInitData(raw string) (Player, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Player{}, ErrAuthFailed
	}

	supplied := values.Get("hash")
	if supplied == "" {
		return Player{}, ErrAuthFailed
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	key := sha256.Sum256([]byte(a.secret))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(checkString))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(supplied)) {
		return Player{}, ErrAuthFailed
	}

	var user struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		Username  string `json:"username"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return Player{}, ErrAuthFailed
	}

	name := user.Username
	if name == "" {
		name = user.FirstName
	}

	return Player{
		ID:   fmt.Sprintf("tg:%d", user.ID),
		Name: name,
	}, nil
}
