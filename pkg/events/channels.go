package events

import "fmt"

// UpdatesChannel returns the per-user fan-out channel name for userID:
// "<prefix>:<user_id>". prefix is the configured fanout.channel_prefix
// (default "updates").
func UpdatesChannel(prefix, userID string) string {
	return fmt.Sprintf("%s:%s", prefix, userID)
}
