// ABOUTME: Tests for request field validation rules
// ABOUTME: Covers username, password, email, passcode and id formats

package validate

import (
	"errors"
	"testing"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"alice", true},
		{"a", true},
		{"user_name_12", true},
		{"", false},
		{"thirteen_char", false},
		{"bad-name", false},
		{"with space", false},
	}
	for _, tt := range tests {
		err := Username(tt.in)
		if (err == nil) != tt.valid {
			t.Errorf("Username(%q) error = %v, want valid=%v", tt.in, err, tt.valid)
		}
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"abcde", true},
		{"Pa$$w0rd!", true},
		{"123456789012345", true},
		{"abcd", false},
		{"1234567890123456", false},
		{"has space", false},
		{"semi;colon", false},
	}
	for _, tt := range tests {
		err := Password(tt.in)
		if (err == nil) != tt.valid {
			t.Errorf("Password(%q) error = %v, want valid=%v", tt.in, err, tt.valid)
		}
	}
}

func TestEmail(t *testing.T) {
	if err := Email("a@b.com"); err != nil {
		t.Errorf("Email(a@b.com) = %v", err)
	}
	for _, bad := range []string{"", "not-an-email", "Name <a@b.com>"} {
		if err := Email(bad); err == nil {
			t.Errorf("Email(%q) should fail", bad)
		}
	}
}

func TestPasscode(t *testing.T) {
	if err := Passcode("123456"); err != nil {
		t.Errorf("Passcode = %v", err)
	}
	for _, bad := range []string{"12345", "1234567", "12a456", ""} {
		if err := Passcode(bad); err == nil {
			t.Errorf("Passcode(%q) should fail", bad)
		}
	}
}

func TestID(t *testing.T) {
	if err := ID("comment_id", "0123456789abcdef0123456789ABCDEF"); err != nil {
		t.Errorf("ID = %v", err)
	}
	err := ID("comment_id", "xyz")
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ve.Field != "comment_id" || ve.Message != "Invalid comment_id" {
		t.Errorf("unexpected error %+v", ve)
	}
	if !IsError(err) {
		t.Error("IsError should report true")
	}
}
