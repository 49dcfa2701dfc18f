package inputval

import (
	"strings"
	"testing"
)

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		// Valid URLs
		{"http://example.com", true},
		{"https://example.com/avatar.png", true},
		{"https://cdn.example.com/u/1?size=64", true},
		{"http://localhost:8080", true},
		{"  https://example.com  ", true},

		// Invalid URLs
		{"", false},
		{"   ", false},
		{"example.com", false},
		{"https://", false},
		{"ftp://example.com", false},
		{"data:image/png;base64,AAAA", false},
		{"javascript:alert(1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := IsValidHTTPURL(tt.url)
			if got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

type signupInput struct {
	Name     string `validate:"required" label:"Name"`
	Email    string `validate:"required" label:"Email"`
	Password string `validate:"required,max=72" label:"Password"`
	Status   string `validate:"omitempty,oneof=active suspended deactivated" label:"Account status"`
	Photo    string `validate:"omitempty,httpurl" label:"Profile picture URL"`
}

func TestValidate(t *testing.T) {
	valid := signupInput{Name: "Ada", Email: "ada@example.com", Password: "pw"}

	tests := []struct {
		name     string
		mutate   func(*signupInput)
		wantRule string
		wantMsg  string
	}{
		{"valid", func(*signupInput) {}, "", ""},
		{"valid with optional fields", func(in *signupInput) {
			in.Status = "suspended"
			in.Photo = "https://example.com/a.png"
		}, "", ""},
		{"missing name", func(in *signupInput) { in.Name = "" }, "required", "Name is required."},
		{"blank name", func(in *signupInput) { in.Name = "   " }, "required", "Name is required."},
		{"missing email", func(in *signupInput) { in.Email = "" }, "required", "Email is required."},
		{"missing password", func(in *signupInput) { in.Password = "" }, "required", "Password is required."},
		{"password too long", func(in *signupInput) { in.Password = strings.Repeat("x", 73) }, "max", "Password must be at most 72 characters."},
		{"unknown status", func(in *signupInput) { in.Status = "banned" }, "oneof", "Account status must be one of: active, suspended, deactivated."},
		{"non-http photo", func(in *signupInput) { in.Photo = "javascript:alert(1)" }, "httpurl", "Profile picture URL must be a valid URL starting with http:// or https://."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			res := Validate(in)
			if tt.wantRule == "" {
				if res.HasErrors() {
					t.Fatalf("Validate() expected no errors, got: %s", res.All())
				}
				return
			}
			if !res.HasErrors() {
				t.Fatal("Validate() expected errors, got none")
			}
			if got := res.FirstRule(); got != tt.wantRule {
				t.Errorf("FirstRule() = %q, want %q", got, tt.wantRule)
			}
			if got := res.First(); got != tt.wantMsg {
				t.Errorf("First() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestValidate_StopsAtFirstField(t *testing.T) {
	res := Validate(signupInput{})
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %s", len(res.Errors), res.All())
	}
	if res.Errors[0].Label != "Name" {
		t.Errorf("first error label = %q, want Name", res.Errors[0].Label)
	}
}

func TestValidate_PointerInput(t *testing.T) {
	res := Validate(&signupInput{Name: "Ada", Email: "ada@example.com"})
	if res.First() != "Password is required." {
		t.Errorf("First() = %q", res.First())
	}
}

func TestResult_Empty(t *testing.T) {
	r := &Result{}
	if r.HasErrors() || r.First() != "" || r.FirstRule() != "" || r.All() != "" {
		t.Errorf("empty result = %+v", r)
	}

	r = &Result{Errors: []FieldError{
		{Field: "Name", Label: "Name", Rule: "required", Message: "Name is required."},
		{Field: "Email", Label: "Email", Rule: "required", Message: "Email is required."},
	}}
	if got := r.All(); got != "Name is required.; Email is required." {
		t.Errorf("All() = %q", got)
	}
}
