package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overrides cfg from TASKAPP_* environment variables.
// Unset or unparsable variables leave the current value alone.
func ApplyEnv(cfg *Config) {
	if val := getEnvString("TASKAPP_ADDR"); val != "" {
		cfg.Server.Addr = val
	}
	if val := getEnvString("TASKAPP_DATA_DIR"); val != "" {
		cfg.Storage.DataDir = val
	}
	if val := getEnvString("TASKAPP_USERS_FILE"); val != "" {
		cfg.Auth.UsersFile = val
	}
	if val := getEnvString("TASKAPP_COOKIE_NAME"); val != "" {
		cfg.Auth.CookieName = val
	}
	if val := getEnvString("TASKAPP_COOKIE_SECURE"); val != "" {
		cfg.Auth.CookieSecure = val
	}
	if val := getEnvInt("TASKAPP_SESSION_TTL_HOURS"); val > 0 {
		cfg.Auth.SessionTTLHours = val
	}
	if val := getEnvString("TASKAPP_LEDGER_STORAGE"); val != "" {
		cfg.Ledger.Storage = val
	}
	if val, ok := getEnvBool("TASKAPP_LEDGER_BEST_EFFORT"); ok {
		cfg.Ledger.BestEffort = val
	}
	cfg.ApplyDefaults()
}

func getEnvString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}

func getEnvBool(key string) (bool, bool) {
	switch strings.ToLower(getEnvString(key)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	default:
		return false, false
	}
}
