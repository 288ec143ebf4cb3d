package memory_test

import (
	"testing"

	"c4arch/session"
	"c4arch/session/memory"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	session.RunStoreContract(t, store)
}
