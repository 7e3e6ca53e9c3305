package auth

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestClassifyError_MessagePatterns(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ValidationErrorType
	}{
		{"invalid key", errors.New("API key not valid. Please pass a valid API key"), ErrTypeInvalidKey},
		{"permission denied", errors.New("permission denied"), ErrTypeInvalidKey},
		{"quota", errors.New("quota exceeded for requests"), ErrTypeQuotaExceeded},
		{"rate limit", errors.New("rate limit hit"), ErrTypeQuotaExceeded},
		{"network dial", errors.New("dial tcp: lookup generativelanguage.googleapis.com: no such host"), ErrTypeNetworkError},
		{"timeout", errors.New("context deadline exceeded: timeout"), ErrTypeNetworkError},
		{"unknown", errors.New("something else entirely"), ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if got.Type != tt.want {
				t.Errorf("classifyError(%q).Type = %v, want %v", tt.err, got.Type, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyAPIError_Codes(t *testing.T) {
	tests := []struct {
		code int
		want ValidationErrorType
	}{
		{400, ErrTypeInvalidKey},
		{401, ErrTypeInvalidKey},
		{403, ErrTypeInvalidKey},
		{429, ErrTypeQuotaExceeded},
		{500, ErrTypeNetworkError},
		{503, ErrTypeNetworkError},
		{418, ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("code_%d", tt.code), func(t *testing.T) {
			got := classifyAPIError(&genai.APIError{Code: tt.code, Message: "x"})
			if got.Type != tt.want {
				t.Errorf("classifyAPIError(%d).Type = %v, want %v", tt.code, got.Type, tt.want)
			}
		})
	}
}

func TestGetAPIKey_EnvVar(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key-123")
	key, err := GetAPIKey()
	if err != nil {
		t.Fatalf("GetAPIKey failed: %v", err)
	}
	if key != "test-key-123" {
		t.Errorf("expected test-key-123, got %s", key)
	}
}
