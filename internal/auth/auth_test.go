package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/gmpctl/internal/testutil/testlog"
)

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr error
	}{
		{name: "missing username", creds: Credentials{Password: "pw"}, wantErr: ErrMissingCredentials},
		{name: "missing password", creds: Credentials{Username: "admin"}, wantErr: ErrMissingCredentials},
		{name: "whitespace is a value", creds: Credentials{Username: " ", Password: " "}, wantErr: nil},
		{name: "complete", creds: Credentials{Username: "admin", Password: "pw"}, wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			testlog.Start(t)
			err := tc.creds.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCredentialsStringRedactsPassword(t *testing.T) {
	testlog.Start(t)
	got := Credentials{Username: "admin", Password: "hunter2"}.String()
	if strings.Contains(got, "hunter2") {
		t.Fatalf("password leaked: %q", got)
	}
	if !strings.Contains(got, "admin") {
		t.Fatalf("username missing: %q", got)
	}
}

func TestEnvSource(t *testing.T) {
	testlog.Start(t)
	t.Setenv("GMPCTL_TEST_PASSWORD", "from-env")

	creds, err := Env{Username: "admin", Password: "ignored", PasswordEnv: "GMPCTL_TEST_PASSWORD"}.Credentials()
	if err != nil {
		t.Fatalf("env credentials: %v", err)
	}
	if creds.Username != "admin" || creds.Password != "from-env" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}

	creds, err = Env{Username: "admin", Password: "inline"}.Credentials()
	if err != nil || creds.Password != "inline" {
		t.Fatalf("inline password: creds=%+v err=%v", creds, err)
	}

	_, err = Env{Username: "admin", PasswordEnv: "GMPCTL_TEST_PASSWORD_UNSET"}.Credentials()
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got %v", err)
	}
}

func TestFuncSource(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("vault sealed")
	src := FuncSource(func() (Credentials, error) { return Credentials{}, boom })
	if _, err := src.Credentials(); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	static := Static{Username: "a", Password: "b"}
	creds, err := static.Credentials()
	if err != nil || creds != (Credentials{Username: "a", Password: "b"}) {
		t.Fatalf("static source: %+v %v", creds, err)
	}
}
