package helper

import (
	"testing"

	"github.com/google/uuid"
)

func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating a v7 uuid should never fail: %v", err)
	}

	return id
}
