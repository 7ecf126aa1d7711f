package simulation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner runs a command and returns its stdout and stderr.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

// CastBackend shells out to foundry's cast for nodes only reachable through it.
// cast mixes warnings into stdout, responses go through ExtractJSON afterwards.
type CastBackend struct {
	castPath string
	rpcUrl   string
	run      CommandRunner
}

func NewCastBackend(castPath string, rpcUrl string, runner CommandRunner) *CastBackend {
	if castPath == "" {
		castPath = "cast"
	}
	if runner == nil {
		runner = runCommand
	}
	return &CastBackend{
		castPath: castPath,
		rpcUrl:   rpcUrl,
		run:      runner,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// CastArgs returns the cast arguments for req.
func (b *CastBackend) CastArgs(req *TraceRequest) ([]string, error) {
	params, err := req.EncodeParams()
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, len(params)+4)
	args = append(args, "rpc", "debug_traceCallMany")
	args = append(args, params...)
	args = append(args, "--rpc-url", b.rpcUrl)
	return args, nil
}

func (b *CastBackend) TraceCallMany(ctx context.Context, req *TraceRequest) ([]byte, error) {
	args, err := b.CastArgs(req)
	if err != nil {
		return nil, err
	}

	stdout, stderr, err := b.run(ctx, b.castPath, args...)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("cast interrupted: %w", ctxErr)
		}

		message := strings.TrimSpace(string(stderr))
		if isConnectionFailure(message) {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, message)
		}
		return nil, fmt.Errorf("cast exited with %v: %v", err, message)
	}

	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, ErrEmptyResponse
	}

	return stdout, nil
}

func isConnectionFailure(message string) bool {
	message = strings.ToLower(message)
	for _, marker := range []string{"connection refused", "no such file or directory", "error sending request"} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
