package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{Companies: &mockCompanyService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search:    &mockSearchService{},
			Companies: &mockCompanyService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{Companies: &mockCompanyService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingSearchService)
	})

	t.Run("nil company service returns error", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingCompanyService)
	})

	t.Run("analysis and reports are optional", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}, Companies: &mockCompanyService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Search:    &mockSearchService{},
			Companies: &mockCompanyService{},
			Analysis:  &mockAnalysisService{},
			Reports:   &mockReportService{},
		}
		assert.NoError(t, ports.Validate())
	})
}

func TestServer_RunHTTP_StopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Companies: &mockCompanyService{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.RunHTTP(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}

func TestServer_RunHTTP_ListenError(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Companies: &mockCompanyService{}})
	require.NoError(t, err)

	err = server.RunHTTP(context.Background(), "invalid-address")
	assert.Error(t, err)
}

func TestLogRequests_PassesThrough(t *testing.T) {
	called := ""
	next := func(_ context.Context, method string, _ mcp.Request) (mcp.Result, error) {
		called = method
		return nil, errors.New("boom")
	}

	_, err := logRequests(next)(context.Background(), "tools/call", nil)

	assert.Equal(t, "tools/call", called)
	assert.EqualError(t, err, "boom")
}
