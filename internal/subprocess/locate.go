package subprocess

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wagiedev/agentpipe/internal/errors"
)

// fallbackDirs are searched for bare command names missing from PATH.
// Entries starting with "~/" are relative to the home directory.
var fallbackDirs = []string{
	"/usr/local/bin",
	"/usr/bin",
	"~/.local/bin",
	"~/go/bin",
}

// Locate resolves the executable for path.
//
// A path containing a separator is used as is, after "~/" expansion; when
// relative it is taken relative to cwd if set. A bare name is looked up in
// PATH and then in a few common install locations. The result must be an
// executable regular file. Failures are reported as *errors.SpawnError naming
// every place searched.
func Locate(log *slog.Logger, path, cwd string) (string, error) {
	expanded := expandHome(path)

	if strings.ContainsRune(expanded, filepath.Separator) {
		if !filepath.IsAbs(expanded) && cwd != "" {
			expanded = filepath.Join(expandHome(cwd), expanded)
		}

		if err := checkExecutable(expanded); err != nil {
			log.Debug("Explicit command path not usable", "path", expanded, "error", err)

			return "", &errors.SpawnError{Path: path, Err: err}
		}

		return expanded, nil
	}

	if found, err := exec.LookPath(expanded); err == nil {
		log.Debug("Found command in PATH", "name", expanded, "path", found)

		return found, nil
	}

	searched := []string{"$PATH"}

	for _, dir := range fallbackDirs {
		candidate := filepath.Join(expandHome(dir), expanded)
		searched = append(searched, candidate)

		if checkExecutable(candidate) == nil {
			log.Debug("Found command in fallback location", "path", candidate)

			return candidate, nil
		}
	}

	log.Warn("Command not found", "name", expanded, "searched_paths", searched)

	return "", &errors.SpawnError{
		Path: path,
		Err:  fmt.Errorf("executable not found, searched %s", strings.Join(searched, ", ")),
	}
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, rest)
}

var errNotExecutable = stderrors.New("not an executable file")

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return errNotExecutable
	}

	return nil
}
