package storagefactory

import (
	"context"
	"io"
	"strings"
	"testing"

	"mango/internal/config"
)

func TestNewStorage_Local(t *testing.T) {
	tmpDir := t.TempDir()
	baseURL := "http://localhost:8080/storage"

	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr bool
	}{
		{
			name: "valid local storage config",
			cfg: &config.StorageConfig{
				Type: "local",
				Local: &config.LocalConfig{
					BasePath:      tmpDir,
					BaseURL:       baseURL,
					PresignExpiry: 3600,
				},
			},
			wantErr: false,
		},
		{
			name: "missing local config",
			cfg: &config.StorageConfig{
				Type:  "local",
				Local: nil,
			},
			wantErr: true,
		},
		{
			name: "unsupported storage type",
			cfg: &config.StorageConfig{
				Type: "invalid",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, err := NewStorage(ctx, tt.cfg)

			if tt.wantErr {
				if err == nil {
					t.Errorf("NewStorage() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("NewStorage() unexpected error: %v", err)
				return
			}
			if store == nil {
				t.Errorf("NewStorage() expected storage instance, got nil")
			}
		})
	}
}

func TestLocalStorage_Operations(t *testing.T) {
	tmpDir := t.TempDir()
	baseURL := "http://localhost:8080/storage"

	cfg := &config.StorageConfig{
		Type: "local",
		Local: &config.LocalConfig{
			BasePath:      tmpDir,
			BaseURL:       baseURL,
			PresignExpiry: 3600,
		},
	}

	ctx := context.Background()
	store, err := NewStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	testKey := "images/conv-1/test.png"
	testContent := "fake image bytes"

	url, err := store.Upload(ctx, testKey, strings.NewReader(testContent), "image/png")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	expectedURL := baseURL + "/" + testKey
	if url != expectedURL {
		t.Errorf("Upload() url = %v, want %v", url, expectedURL)
	}

	rc, err := store.Download(ctx, testKey)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Failed to read downloaded file: %v", err)
	}
	if string(data) != testContent {
		t.Errorf("Download() content = %q, want %q", string(data), testContent)
	}

	exists, err := store.Exists(ctx, testKey)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Errorf("Exists() = false, want true")
	}

	if err := store.Delete(ctx, testKey); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	exists, err = store.Exists(ctx, testKey)
	if err != nil {
		t.Fatalf("Exists() after delete error = %v", err)
	}
	if exists {
		t.Errorf("Exists() after delete = true, want false")
	}
}
