package postgres

import (
	"context"
	"strings"
)

// TryReserveIdempotencyKey inserts (key, scope) once, fencing a
// client-supplied X-Idempotency-Key against accidental retransmission of a
// write. ok=true means this is the first time the key has been seen for
// that scope; ok=false means a prior request already claimed it. Reserving
// inside the same Tx as the guarded write means the reservation and the
// write commit or roll back together.
func (t *Tx) TryReserveIdempotencyKey(ctx context.Context, key, scope string) (ok bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return true, nil
	}
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO idempotency_keys (key, scope, created_at, expires_at)
		VALUES ($1, $2, NOW(), NOW() + INTERVAL '24 hours')
		ON CONFLICT (key, scope) DO NOTHING
	`, key, scope)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
