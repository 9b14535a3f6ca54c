package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// envFileCandidates lists the files LoadEnvFileCandidates reads, in order:
// BOXCODER_ENV_FILE, the project's ./.env (where GEMINI_API_KEY usually
// lives), then ~/.config/boxcoder/env and ~/.boxcoder/env.
func envFileCandidates() []string {
	var candidates []string
	if explicit := strings.TrimSpace(os.Getenv("BOXCODER_ENV_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, ".env")
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "boxcoder", "env"),
			filepath.Join(home, ConfigDir, "env"),
		)
	}
	return candidates
}

// LoadEnvFileCandidates exports KEY=value pairs from the env files into the
// process environment. A variable that is already set is never overridden,
// so the first file to name a key wins and the shell beats every file.
func LoadEnvFileCandidates() {
	seen := map[string]struct{}{}
	for _, p := range envFileCandidates() {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		_ = loadEnvFile(abs)
	}
}

func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := parseEnvLine(sc.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return sc.Err()
}

// parseEnvLine reads one "[export] KEY=value" line. Quoted values are taken
// verbatim; unquoted values lose a trailing " # comment".
func parseEnvLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, val, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	val = strings.TrimSpace(val)
	if unquoted, quoted := unquote(val); quoted {
		return key, unquoted, true
	}
	if i := strings.Index(val, " #"); i >= 0 {
		val = strings.TrimSpace(val[:i])
	}
	return key, val, true
}

func unquote(v string) (string, bool) {
	if len(v) < 2 {
		return v, false
	}
	if (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1], true
	}
	return v, false
}
