package cache

import "fmt"

const (
	ActiveBundlesKey = "bundles:active"
	ReconcileLockKey = "lock:reconcile"
)

// GenerateKey builds keys of the form entity:kind:value.
func GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

func BalanceKey(userID uint) string {
	return GenerateKey("credits", "user", userID)
}

// NotificationChannel is the pub/sub channel carrying a user's notifications.
func NotificationChannel(userID uint) string {
	return fmt.Sprintf("notifications:%d", userID)
}

const NotificationPattern = "notifications:*"
