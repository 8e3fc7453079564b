package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	userID, err := NewVerifier("secret").UserID(token)
	if err != nil {
		t.Fatalf("UserID returned error: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("UserID = %q, want user-1", userID)
	}
}

func TestVerifyRejectsBadCredentials(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	valid, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	expiredIssuer := NewIssuer("secret", time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue expired returned error: %v", err)
	}

	tests := []struct {
		name    string
		secret  string
		token   string
		wantErr error
	}{
		{name: "empty", secret: "secret", token: "", wantErr: ErrMissingCredential},
		{name: "garbage", secret: "secret", token: "not-a-jwt", wantErr: ErrInvalidCredential},
		{name: "wrong secret", secret: "other", token: valid, wantErr: ErrInvalidCredential},
		{name: "expired", secret: "secret", token: expired, wantErr: ErrInvalidCredential},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVerifier(tc.secret).UserID(tc.token)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("UserID error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestIssueRequiresUserID(t *testing.T) {
	if _, err := NewIssuer("secret", time.Hour).Issue(" "); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
		"Bearer":       "",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
