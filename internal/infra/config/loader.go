package config

import (
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides settings from DEE_* variables and reports whether
// any variable was set. Unparsable numbers are ignored.
func applyEnv(s *RawSettings, getenv func(string) string) bool {
	applied := false
	str := func(k string, dst **string) {
		if v := getenv(k); v != "" {
			*dst = &v
			applied = true
		}
	}
	num := func(k string, dst **int) {
		if v := getenv(k); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = &n
				applied = true
			}
		}
	}
	seconds := func(k string, dst **int) {
		if v := getenv(k); v != "" {
			if n, ok := toSeconds(v); ok {
				*dst = &n
				applied = true
			}
		}
	}

	str("DEE_HOME", &s.Home)
	str("DEE_DB_PATH", &s.DBPath)
	num("DEE_MAX_ROWS", &s.MaxRows)
	num("DEE_MAX_ATTEMPTS", &s.MaxAttempts)
	seconds("DEE_TIMEOUT_SEC", &s.GenerationTimeoutSec)
	seconds("DEE_EXEC_TIMEOUT", &s.ExecutionTimeoutSec)
	str("DEE_AGENT", &s.Agent)
	str("DEE_MODEL", &s.Model)
	str("DEE_AGENT_BIN", &s.AgentBin)
	str("DEE_BASE_URL", &s.BaseURL)
	str("DEE_SCRIPT", &s.ScriptPath)
	str("DEE_ARCHIVE", &s.Archive)
	str("DEE_ARCHIVE_DIR", &s.ArchiveDir)
	str("DEE_ARCHIVE_DB", &s.ArchiveDB)
	str("DEE_S3_BUCKET", &s.S3Bucket)
	str("DEE_S3_PREFIX", &s.S3Prefix)
	str("DEE_S3_REGION", &s.S3Region)
	str("DEE_REDIS_ADDR", &s.RedisAddr)
	str("DEE_STDERR_LEVEL", &s.StderrLevel)
	if s.StderrLevel != nil {
		lvl := strings.ToLower(*s.StderrLevel)
		s.StderrLevel = &lvl
	}
	return applied
}

// toSeconds accepts either a Go duration ("90s", "2m") or a number of seconds
func toSeconds(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return int(d / time.Second), true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	return 0, false
}

// apiKeyFor picks the credential variable of the selected backend
func apiKeyFor(agent string, getenv func(string) string) string {
	switch agent {
	case "openai":
		return getenv("OPENAI_API_KEY")
	case "anthropic":
		return getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
