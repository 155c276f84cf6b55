package mcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr error
	}{
		{"nil ports", nil, ErrMissingSearchService},
		{"no search", &Ports{Sources: &mockSourceService{}}, ErrMissingSearchService},
		{"search only", &Ports{Search: &mockSearchService{}}, nil},
		{"all ports", &Ports{
			Search:   &mockSearchService{},
			Sources:  &mockSourceService{},
			Indexing: &mockIndexingService{},
		}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ports.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(&Ports{})
	require.ErrorIs(t, err, ErrMissingSearchService)

	server, err := NewServer(&Ports{Search: &mockSearchService{}})
	require.NoError(t, err)
	assert.NotNil(t, server.Handler())
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_RunHTTPBadAddress(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}})
	require.NoError(t, err)

	assert.Error(t, server.RunHTTP(context.Background(), "not-an-address"))
}
