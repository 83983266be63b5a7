package staff

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("signing-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	member := Member{
		ID:      uuid.New(),
		StoreID: "s1",
		Name:    "Mina",
		Role:    RoleManager,
	}
	token, err := issuer.Issue(member)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != member.ID.String() {
		t.Fatalf("user_id = %q", claims.UserID)
	}
	if claims.StoreID != "s1" || claims.Role != RoleManager || claims.Name != "Mina" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyRejectsForgedTokens(t *testing.T) {
	issuer, err := NewTokenIssuer("signing-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	other, err := NewTokenIssuer("different-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	member := Member{ID: uuid.New(), StoreID: "s1", Name: "Mina", Role: RoleServer}

	forged, err := other.Issue(member)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(forged); err == nil {
		t.Fatal("token signed with a different key must not verify")
	}

	if _, err := issuer.Verify("not-a-token"); err == nil {
		t.Fatal("garbage must not verify")
	}
}

func TestVerifyRejectsExpiredTokens(t *testing.T) {
	issuer, err := NewTokenIssuer("signing-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issuer.ttl = -time.Minute

	token, err := issuer.Issue(Member{ID: uuid.New(), StoreID: "s1", Name: "Mina", Role: RoleServer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestNewTokenIssuerRequiresKey(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Fatal("empty key must be rejected")
	}

	issuer, err := NewTokenIssuer("k", 0)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if issuer.ttl != 8*time.Hour {
		t.Fatalf("default ttl = %v", issuer.ttl)
	}
}
