package debito

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"local number", "841234567", "841234567"},
		{"with country code", "258841234567", "841234567"},
		{"with plus prefix", "+258841234567", "841234567"},
		{"with spaces", "84 123 4567", "841234567"},
		{"plus and spaces", "+258 84 123 4567", "841234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.phone); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.phone, got, tt.want)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		method  string
		wantErr error
	}{
		{"mpesa 84", "841234567", MethodMpesa, nil},
		{"mpesa 85", "851234567", MethodMpesa, nil},
		{"emola 86", "861234567", MethodEmola, nil},
		{"emola 87", "871234567", MethodEmola, nil},
		{"mpesa with country code", "+258841234567", MethodMpesa, nil},

		{"mpesa with emola prefix", "861234567", MethodMpesa, ErrMethodMismatch},
		{"emola with mpesa prefix", "841234567", MethodEmola, ErrMethodMismatch},
		{"landline prefix", "211234567", MethodMpesa, ErrMethodMismatch},

		{"too short", "84123456", MethodMpesa, ErrInvalidPhone},
		{"too long", "8412345678", MethodMpesa, ErrInvalidPhone},
		{"non numeric", "84abc4567", MethodMpesa, ErrInvalidPhone},
		{"empty", "", MethodMpesa, ErrInvalidPhone},

		{"unknown method", "841234567", "visa", ErrInvalidMethod},
		{"empty method", "841234567", "", ErrInvalidMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhone(tt.phone, tt.method)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePhone(%q, %q) = %v, want %v", tt.phone, tt.method, err, tt.wantErr)
			}
		})
	}
}
