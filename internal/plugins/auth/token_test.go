package auth

import (
	"testing"
	"time"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)
	user := &User{
		ID:        42,
		FirstName: "Alice",
		LastName:  "Anders",
		Email:     "alice@example.com",
		IsAdmin:   true,
	}

	token, err := codec.Mint(user)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("unexpected email claim: %s", claims.Email)
	}
	if !claims.IsAdmin {
		t.Error("expected admin claim to survive the round trip")
	}
	if claims.Name() != "Alice Anders" {
		t.Errorf("unexpected name: %q", claims.Name())
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	minting := NewTokenCodec("secret-a", time.Hour)
	verifying := NewTokenCodec("secret-b", time.Hour)

	token, err := minting.Mint(&User{ID: 1})
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if _, err := verifying.Verify(token); err == nil {
		t.Error("expected verification to fail with a different secret")
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	codec := NewTokenCodec("test-secret", -time.Minute)

	token, err := codec.Mint(&User{ID: 1})
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	_, err = codec.Verify(token)
	assertAppError(t, err, 401)
}

func TestTokenCodec_Garbage(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := codec.Verify(raw); err == nil {
			t.Errorf("expected %q to fail verification", raw)
		}
	}
}
