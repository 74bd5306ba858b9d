package services

import (
	"context"
	"math"
	"time"

	"strava-canteen/db"
)

const ThrottleCooldownCapSeconds = 30

// LoginThrottleWaitSeconds returns how many seconds the chat must wait
// before the bot retries the upstream login (0 if no cooldown).
func LoginThrottleWaitSeconds(ctx context.Context, chatID int64) (int, error) {
	var cooldownUntil *time.Time
	err := db.Pool.QueryRow(ctx, `
		SELECT cooldown_until FROM login_throttle WHERE chat_id = $1`,
		chatID,
	).Scan(&cooldownUntil)
	if err != nil {
		return 0, nil // no row = no throttle
	}
	if cooldownUntil == nil {
		return 0, nil
	}
	until := *cooldownUntil
	if time.Now().Before(until) {
		return int(time.Until(until).Seconds()) + 1, nil // round up
	}
	return 0, nil
}

// RecordLoginFailed increments fail_count and sets cooldown_until to
// now() + min(30, 2^fail_count) seconds.
func RecordLoginFailed(ctx context.Context, chatID int64) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO login_throttle (chat_id, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 1, now(), now() + (LEAST(30, POWER(2, 1)::int) || ' seconds')::interval, now())
		ON CONFLICT (chat_id) DO UPDATE SET
			fail_count = login_throttle.fail_count + 1,
			last_failed_at = now(),
			cooldown_until = now() + (LEAST(30, POWER(2, login_throttle.fail_count + 1)::int) || ' seconds')::interval,
			updated_at = now()`,
		chatID,
	)
	return err
}

// RecordLoginSuccess resets the throttle state for the chat.
func RecordLoginSuccess(ctx context.Context, chatID int64) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO login_throttle (chat_id, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 0, NULL, NULL, now())
		ON CONFLICT (chat_id) DO UPDATE SET
			fail_count = 0,
			last_failed_at = NULL,
			cooldown_until = NULL,
			updated_at = now()`,
		chatID,
	)
	return err
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}
