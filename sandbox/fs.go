package sandbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/computesdk/computesdk-sub001/fserrors"
)

// FileEntry is one row of a directory listing.
type FileEntry struct {
	Name  string
	IsDir bool
}

// ReadFile reads the full contents of path. The server surface has no
// dedicated filesystem endpoint (§6.4); the facade maps to the command
// layer the same way the design's "filesystem facade that maps to
// HTTP/commands" describes, base64-transporting the bytes so binary
// files round-trip intact.
func (r *Root) ReadFile(ctx context.Context, path string) ([]byte, error) {
	res, err := r.Execute(ctx, fmt.Sprintf("base64 -- %s", shellQuote(path)), ExecuteOptions{})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fserrors.Wrap(fserrors.PathClient, fserrors.StageRequest, fserrors.CodeHTTPStatus, fmt.Errorf("read %s: exit %d: %s", path, res.ExitCode, res.Stderr))
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(res.Stdout))
	if err != nil {
		return nil, fserrors.Wrap(fserrors.PathClient, fserrors.StageDecode, fserrors.CodeInvalidInput, err)
	}
	return decoded, nil
}

// WriteFile writes data to path, creating or truncating it.
func (r *Root) WriteFile(ctx context.Context, path string, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	cmd := fmt.Sprintf("printf '%%s' %s | base64 -d > %s", shellQuote(encoded), shellQuote(path))
	res, err := r.Execute(ctx, cmd, ExecuteOptions{})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fserrors.Wrap(fserrors.PathClient, fserrors.StageRequest, fserrors.CodeHTTPStatus, fmt.Errorf("write %s: exit %d: %s", path, res.ExitCode, res.Stderr))
	}
	return nil
}

// ListDir lists the immediate entries of a directory.
func (r *Root) ListDir(ctx context.Context, path string) ([]FileEntry, error) {
	cmd := fmt.Sprintf("find %s -mindepth 1 -maxdepth 1 -printf '%%y %%f\\n'", shellQuote(path))
	res, err := r.Execute(ctx, cmd, ExecuteOptions{})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fserrors.Wrap(fserrors.PathClient, fserrors.StageRequest, fserrors.CodeHTTPStatus, fmt.Errorf("list %s: exit %d: %s", path, res.ExitCode, res.Stderr))
	}
	var entries []FileEntry
	for _, line := range strings.Split(strings.TrimRight(res.Stdout, "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		entries = append(entries, FileEntry{Name: parts[1], IsDir: parts[0] == "d"})
	}
	return entries, nil
}

// shellQuote single-quotes s for safe inclusion in a POSIX shell command line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
