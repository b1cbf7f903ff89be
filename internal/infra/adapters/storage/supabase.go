package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reseller-billing/internal/domain/ports/adapter"
)

var _ adapter.FileStorage = (*SupabaseStorage)(nil)

// SupabaseStorage uploads objects to a Supabase Storage bucket over its REST API.
type SupabaseStorage struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
}

func NewSupabaseStorage(url, key, bucket string) (*SupabaseStorage, error) {
	if url == "" || key == "" {
		return nil, errors.New("storage url and service key are required")
	}
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(url, "/"),
		apiKey:     key,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Upload stores body under path and returns the object URL.
func (s *SupabaseStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	path = strings.TrimLeft(path, "/")
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(msg))
	}
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path), nil
}
