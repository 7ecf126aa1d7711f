package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout string
	stderr string
	err    error

	name string
	args []string
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func testRequest() *TraceRequest {
	return NewRequestBuilder(0).Build(&SyntheticCall{
		From: common.HexToAddress("0x01"),
		To:   common.HexToAddress("0x02"),
	}, BlockPosition{Block: 100, Index: 5})
}

func TestCastBackendArgs(t *testing.T) {
	runner := &fakeRunner{stdout: "[[{}]]"}
	backend := NewCastBackend("/opt/foundry/cast", "/tmp/op-reth", runner.run)

	out, err := backend.TraceCallMany(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "[[{}]]", string(out))

	assert.Equal(t, "/opt/foundry/cast", runner.name)
	require.Len(t, runner.args, 7)
	assert.Equal(t, []string{"rpc", "debug_traceCallMany"}, runner.args[:2])
	assert.Equal(t, []string{"--rpc-url", "/tmp/op-reth"}, runner.args[5:])
	assert.True(t, json.Valid([]byte(runner.args[2])))
	assert.JSONEq(t, `{"blockNumber":"0x64","transactionIndex":5}`, runner.args[3])
}

func TestCastBackendErrors(t *testing.T) {
	tests := []struct {
		name            string
		runner          *fakeRunner
		wantUnreachable bool
		wantErr         error
	}{
		{
			name:            "cast binary missing",
			runner:          &fakeRunner{err: &exec.Error{Name: "cast", Err: exec.ErrNotFound}},
			wantUnreachable: true,
		},
		{
			name:            "node socket missing",
			runner:          &fakeRunner{err: errors.New("exit status 1"), stderr: "Error: No such file or directory (os error 2)"},
			wantUnreachable: true,
		},
		{
			name:            "connection refused",
			runner:          &fakeRunner{err: errors.New("exit status 1"), stderr: "error sending request for url (http://localhost:8545/)"},
			wantUnreachable: true,
		},
		{
			name:   "node rejected request",
			runner: &fakeRunner{err: errors.New("exit status 1"), stderr: "Error: server returned an error response: error code -32000: header not found"},
		},
		{
			name:    "empty output",
			runner:  &fakeRunner{stdout: "  \n"},
			wantErr: ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewCastBackend("", "/tmp/op-reth", tt.runner.run)
			_, err := backend.TraceCallMany(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantUnreachable, errors.Is(err, ErrBackendUnreachable))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

type fakeTraceCaller struct {
	result json.RawMessage
	err    error
	params []interface{}
}

func (f *fakeTraceCaller) TraceCallMany(ctx context.Context, params ...interface{}) (json.RawMessage, error) {
	f.params = params
	return f.result, f.err
}

type testRPCError struct{}

func (testRPCError) Error() string  { return "header not found" }
func (testRPCError) ErrorCode() int { return -32000 }

var _ rpc.Error = testRPCError{}

func TestRPCBackend(t *testing.T) {
	caller := &fakeTraceCaller{result: json.RawMessage(`[[{"to":"0x02"}]]`)}
	out, err := NewRPCBackend(caller).TraceCallMany(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `[[{"to":"0x02"}]]`, string(out))
	assert.Len(t, caller.params, 3)

	caller = &fakeTraceCaller{result: json.RawMessage(`null`)}
	_, err = NewRPCBackend(caller).TraceCallMany(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrEmptyResponse)

	caller = &fakeTraceCaller{err: testRPCError{}}
	_, err = NewRPCBackend(caller).TraceCallMany(context.Background(), testRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackendUnreachable)

	caller = &fakeTraceCaller{err: context.DeadlineExceeded}
	_, err = NewRPCBackend(caller).TraceCallMany(context.Background(), testRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackendUnreachable)

	caller = &fakeTraceCaller{err: errors.New("dial unix /tmp/op-reth: connect: connection refused")}
	_, err = NewRPCBackend(caller).TraceCallMany(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrBackendUnreachable)
}
