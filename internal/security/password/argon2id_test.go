package password_test

import (
	"strings"
	"testing"

	"github.com/dropDatabas3/tintero/internal/security/password"
)

// fastParams keeps the tests quick; production uses password.Default.
var fastParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 16}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := password.Hash(fastParams, "everything-is-fine")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("not a PHC argon2id string: %q", phc)
	}
	if !password.Verify("everything-is-fine", phc) {
		t.Fatal("correct password did not verify")
	}
	if password.Verify("everything-is-wrong", phc) {
		t.Fatal("wrong password verified")
	}
}

func TestHash_EmptyPasswordRejected(t *testing.T) {
	if _, err := password.Hash(fastParams, ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, _ := password.Hash(fastParams, "same")
	b, _ := password.Hash(fastParams, "same")
	if a == b {
		t.Fatal("two hashes of the same password must differ (random salt)")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	malformed := []string{
		"",
		"not-a-phc-string",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGs",    // wrong variant
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGs",   // wrong version
		"$argon2id$v=19$m=8192,t=1$c2FsdA$ZGs",       // missing p
		"$argon2id$v=19$m=8192,t=1,p=1$!notb64!$ZGs", // bad salt encoding
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$ZGs",      // zero memory
	}
	for _, phc := range malformed {
		if password.Verify("whatever", phc) {
			t.Fatalf("malformed hash verified: %q", phc)
		}
	}
}
