package s3

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectURLUsesPublicBase(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "endpoint without scheme",
			opts: Options{Endpoint: "minio:9000", Bucket: "photos"},
			want: "http://minio:9000/photos/bookings/b-1/inspection/a.jpg",
		},
		{
			name: "public base overrides endpoint",
			opts: Options{Endpoint: "http://minio:9000", Bucket: "photos", PublicBaseURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com/photos/bookings/b-1/inspection/a.jpg",
		},
		{
			name: "tls endpoint",
			opts: Options{Endpoint: "s3.example.com", Bucket: "photos", UseSSL: true},
			want: "https://s3.example.com/photos/bookings/b-1/inspection/a.jpg",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(tc.opts)
			require.NoError(t, err)
			require.Equal(t, tc.want, client.objectURL("/bookings/b-1/inspection/a.jpg"))
		})
	}
}

func TestNewClientRequiresEndpointAndBucket(t *testing.T) {
	_, err := NewClient(Options{Bucket: "photos"})
	require.Error(t, err)
	_, err = NewClient(Options{Endpoint: "minio:9000"})
	require.Error(t, err)
}

func TestDisabledRejectsUploads(t *testing.T) {
	_, err := Disabled{}.Put(context.Background(), "k", strings.NewReader("x"), 1, "image/png")
	require.ErrorIs(t, err, ErrNotConfigured)
}
