package cache

import "fmt"

type EntityType string

const (
	EntityUser        EntityType = "user"
	EntityTransaction EntityType = "transaction"
)

type KeyType string

const KeyID KeyType = "id"

// GenerateKey creates a standardized cache key
func GenerateKey(entity EntityType, keyType KeyType, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entity, keyType, value)
}

// KeyPattern matches every key of entity and keyType.
func KeyPattern(entity EntityType, keyType KeyType) string {
	return fmt.Sprintf("%s:%s:*", entity, keyType)
}
