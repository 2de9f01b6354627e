package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dropDatabas3/tintero/internal/domain"
)

func TestParseName_Valid(t *testing.T) {
	valids := []string{
		"le guin",
		"Úrsula K. Le Guin",
		"r2f2",
		"名前",
		strings.Repeat("a", 256),   // exactly at the limit
		strings.Repeat("ü", 256),   // multibyte, still 256 graphemes
		strings.Repeat("👩‍🔬", 256), // composed emoji counts as one grapheme
	}
	for _, v := range valids {
		n, err := domain.ParseName(v)
		if err != nil {
			t.Fatalf("expected valid name %q: %v", v, err)
		}
		if n.String() != v {
			t.Fatalf("name %q did not round-trip: got %q", v, n.String())
		}
	}
}

func TestParseName_Invalid(t *testing.T) {
	invalids := []string{
		"",
		" ",
		"\t\n",
		strings.Repeat("a", 257),
	}
	// each forbidden character on its own rejects the whole name
	for _, c := range []string{"/", "(", ")", `"`, "<", ">", `\`, "{", "}"} {
		invalids = append(invalids, c, "le"+c+"guin")
	}
	for _, v := range invalids {
		if _, err := domain.ParseName(v); err == nil {
			t.Fatalf("expected invalid name: %q", v)
		}
	}
}

func TestParseEmail_Invalid(t *testing.T) {
	invalids := []string{
		"",
		"something",
		"@something.com",
		"ursula @gmail.com",
		"Ursula <ursula@gmail.com>", // display-name form is not a bare address
	}
	for _, v := range invalids {
		if _, err := domain.ParseEmail(v); err == nil {
			t.Fatalf("expected invalid email: %q", v)
		}
	}
}

func TestParseEmail_Valid(t *testing.T) {
	valids := []string{
		"ursula_le_guin@gmail.com",
		"le.guin+news@sub.example.org",
		"a@b.com",
	}
	for _, v := range valids {
		e, err := domain.ParseEmail(v)
		if err != nil {
			t.Fatalf("expected valid email %q: %v", v, err)
		}
		if e.String() != v {
			t.Fatalf("email %q did not round-trip: got %q", v, e.String())
		}
	}
}

func TestParseName_ValidationErrorType(t *testing.T) {
	_, err := domain.ParseName("")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "name" {
		t.Fatalf("unexpected field: %q", verr.Field)
	}
}
