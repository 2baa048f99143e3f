// Package envfile updates the flat KEY=VALUE file consumed by the
// downstream tool servers. It only ever updates an existing file; creating
// one is deliberately left to the operator.
package envfile

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// TokenKey is the environment file key holding the GitHub access token.
const TokenKey = "GITHUB_PERSONAL_ACCESS_TOKEN"

// EnvFileOverride names an environment variable that, when set, is tried
// first as the env file location.
const EnvFileOverride = "AGENTBRIDGE_ENV_FILE"

// Writer persists a token into the first existing file from its candidate
// list, replacing the key's line in place or appending one.
type Writer struct {
	key        string
	candidates func() []string
}

// NewWriter creates a writer with the default candidate search path: the
// explicit override file, a .env in the working directory, and a .env next
// to the executable.
func NewWriter() *Writer {
	return &Writer{
		key:        TokenKey,
		candidates: defaultCandidates,
	}
}

// NewWriterWithPaths creates a writer over a fixed candidate list. This is
// primarily for testing.
func NewWriterWithPaths(key string, paths []string) *Writer {
	return &Writer{
		key:        key,
		candidates: func() []string { return paths },
	}
}

func defaultCandidates() []string {
	var paths []string

	if override := os.Getenv(EnvFileOverride); override != "" {
		paths = append(paths, override)
	}

	if wd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(wd, ".env"))
	}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), ".env"))
	}

	return paths
}

// Save writes the token into the first candidate file that exists. It
// reports success or failure and never returns an error: any I/O problem is
// logged and absorbed, and a missing file is a failure, not a reason to
// create one.
func (w *Writer) Save(token string) bool {
	for _, path := range w.candidates() {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		if err := w.update(path, token, info.Mode()); err != nil {
			log.WithError(err).WithField("path", path).Warn("failed to update env file")
			return false
		}

		log.WithField("path", path).Info("token saved to env file")
		return true
	}

	log.Warn("no env file found in any candidate location")
	return false
}

// update rewrites the file with the key's line replaced or appended. All
// other lines are preserved byte for byte, in order. If the key somehow
// appears more than once, the extra lines are dropped so that exactly one
// remains after the save.
func (w *Writer) update(path, token string, mode os.FileMode) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	prefix := w.key + "="
	entry := prefix + token
	content := string(raw)

	lines := strings.Split(content, "\n")
	present := false
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			present = true
			break
		}
	}

	if present {
		out := lines[:0]
		replaced := false
		for _, line := range lines {
			if strings.HasPrefix(line, prefix) {
				if replaced {
					continue
				}
				line = entry
				replaced = true
			}
			out = append(out, line)
		}
		content = strings.Join(out, "\n")
	} else {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += entry + "\n"
	}

	return os.WriteFile(path, []byte(content), mode)
}
