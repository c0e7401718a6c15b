package utils

import (
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", "user-1", "store-1", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateJWT("secret", token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.StoreID != "store-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateJWTRejects(t *testing.T) {
	expired, err := GenerateJWT("secret", "user-1", "", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWT("secret", expired); err == nil {
		t.Error("expired token accepted")
	}

	token, _ := GenerateJWT("secret", "user-1", "", time.Hour)
	if _, err := ValidateJWT("other", token); err == nil {
		t.Error("token signed with another secret accepted")
	}
	if _, err := ValidateJWT("secret", "not.a.token"); err == nil {
		t.Error("garbage accepted")
	}
	if _, err := GenerateJWT("", "user-1", "", time.Hour); err == nil {
		t.Error("empty secret accepted")
	}
}
