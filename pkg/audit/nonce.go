package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// NonceAction names the only action the log endpoints issue nonces for
const NonceAction = "mn_audit_log"

// nonceTick is half the lifetime of a nonce
const nonceTick = 12 * time.Hour

// ErrInvalidNonce is returned for a missing, forged or expired nonce
var ErrInvalidNonce = errors.New("invalid request token")

// Noncer issues and checks per-actor request tokens. A token is valid for the
// tick it was issued in and the one after, so 12 to 24 hours.
type Noncer struct {
	secret []byte
	clock  Clock
}

// NewNoncer creates a noncer keyed by secret
func NewNoncer(secret []byte, clock Clock) (*Noncer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("nonce secret must be at least 16 bytes")
	}
	if clock == nil {
		clock = UTCNow
	}
	return &Noncer{secret: secret, clock: clock}, nil
}

func (n *Noncer) tick() int64 {
	return n.clock().Unix() / int64(nonceTick/time.Second)
}

func (n *Noncer) sign(actorID int64, action string, tick int64) string {
	mac := hmac.New(sha256.New, n.secret)
	fmt.Fprintf(mac, "%d|%s|%d", actorID, action, tick)
	return hex.EncodeToString(mac.Sum(nil))[:20]
}

// Issue returns a token for actorID and action
func (n *Noncer) Issue(actorID int64, action string) string {
	return n.sign(actorID, action, n.tick())
}

// Verify checks a token issued by Issue
func (n *Noncer) Verify(token string, actorID int64, action string) error {
	if token == "" {
		return ErrInvalidNonce
	}
	tick := n.tick()
	for _, t := range []int64{tick, tick - 1} {
		if hmac.Equal([]byte(token), []byte(n.sign(actorID, action, t))) {
			return nil
		}
	}
	return ErrInvalidNonce
}
