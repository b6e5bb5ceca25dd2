package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfig_DefaultValues проверяет загрузку значений по умолчанию
func TestLoadConfig_DefaultValues(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if config.Server.Host != "0.0.0.0" {
		t.Errorf("Expected server host to be \"0.0.0.0\", got %s", config.Server.Host)
	}
	if config.Server.Port != 8080 {
		t.Errorf("Expected server port to be 8080, got %d", config.Server.Port)
	}
	if config.Database.Host != "localhost" {
		t.Errorf("Expected database host to be \"localhost\", got %s", config.Database.Host)
	}
	if config.Logger.Level != "info" {
		t.Errorf("Expected logger level to be \"info\", got %s", config.Logger.Level)
	}
	if config.Environment != "dev" {
		t.Errorf("Expected environment to be \"dev\", got %s", config.Environment)
	}
	if config.ANAF.BaseURL != "https://api.anaf.ro/test/FCTEL/rest" {
		t.Errorf("Unexpected default ANAF base URL: %s", config.ANAF.BaseURL)
	}
	if config.ANAF.OAuth.SafetyMargin != "60s" {
		t.Errorf("Expected safety margin 60s, got %s", config.ANAF.OAuth.SafetyMargin)
	}
	if len(config.ANAF.OAuth.Scopes) != 2 {
		t.Errorf("Expected 2 OAuth scopes, got %d", len(config.ANAF.OAuth.Scopes))
	}
	if config.ANAF.StatusMap["ok"] != "ACCEPTED" {
		t.Errorf("Expected status map 'ok' -> ACCEPTED, got %s", config.ANAF.StatusMap["ok"])
	}
	if config.Poller.Interval != "30s" {
		t.Errorf("Expected poller interval 30s, got %s", config.Poller.Interval)
	}
	if config.Poller.MaxAttempts != 5 {
		t.Errorf("Expected poller max attempts 5, got %d", config.Poller.MaxAttempts)
	}
	if len(config.Deadlines.Rules) != 2 {
		t.Fatalf("Expected 2 deadline rules, got %d", len(config.Deadlines.Rules))
	}
	if config.Deadlines.Rules[0].Kind != "SAFT" || config.Deadlines.Rules[0].DayOfMonth != 25 {
		t.Errorf("Unexpected first deadline rule: %+v", config.Deadlines.Rules[0])
	}
}

// TestLoadConfig_FileOverride проверяет возможность переопределения значений по умолчанию значениями из файла конфигурации
func TestLoadConfig_FileOverride(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `server:
  host: "127.0.0.1"
  port: 9090
database:
  host: "prod-db"
  port: 5433
  name: "efactura"
  user: "efactura"
  password: "secret"
logger:
  level: "debug"
  format: "text"
environment: "prod"
anaf:
  base_url: "https://api.anaf.ro/prod/FCTEL/rest"
  inbox_days: 30
poller:
  interval: "60s"
`

	if err := os.WriteFile(tempFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	config, err := LoadConfig(tempFile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if config.Server.Host != "127.0.0.1" {
		t.Errorf("Expected server host to be \"127.0.0.1\", got %s", config.Server.Host)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Expected server port to be 9090, got %d", config.Server.Port)
	}
	if config.Environment != "prod" {
		t.Errorf("Expected environment to be \"prod\", got %s", config.Environment)
	}
	if config.ANAF.BaseURL != "https://api.anaf.ro/prod/FCTEL/rest" {
		t.Errorf("Unexpected ANAF base URL: %s", config.ANAF.BaseURL)
	}
	if config.ANAF.InboxDays != 30 {
		t.Errorf("Expected inbox days 30, got %d", config.ANAF.InboxDays)
	}
	if config.Poller.Interval != "60s" {
		t.Errorf("Expected poller interval 60s, got %s", config.Poller.Interval)
	}
}

// TestLoadConfig_EnvOverride проверяет переопределение значений переменными окружения
func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("DATABASE_HOST", "env-db")
	t.Setenv("LOGGER_LEVEL", "warn")
	t.Setenv("ANAF_BASE_URL", "https://api.anaf.ro/prod/FCTEL/rest")
	t.Setenv("ANAF_CLIENT_ID", "client-from-env")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if config.Server.Port != 9191 {
		t.Errorf("Expected server port to be 9191, got %d", config.Server.Port)
	}
	if config.Database.Host != "env-db" {
		t.Errorf("Expected database host to be \"env-db\", got %s", config.Database.Host)
	}
	if config.Logger.Level != "warn" {
		t.Errorf("Expected logger level to be \"warn\", got %s", config.Logger.Level)
	}
	if config.ANAF.BaseURL != "https://api.anaf.ro/prod/FCTEL/rest" {
		t.Errorf("Unexpected ANAF base URL: %s", config.ANAF.BaseURL)
	}
	if config.ANAF.OAuth.ClientID != "client-from-env" {
		t.Errorf("Expected client id from env, got %s", config.ANAF.OAuth.ClientID)
	}
}

// TestLoadConfig_InvalidEnvironment проверяет отклонение некорректного окружения
func TestLoadConfig_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("Expected error for invalid environment, got nil")
	}
}

// TestLoadConfig_InvalidPort проверяет отклонение некорректного порта
func TestLoadConfig_InvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("Expected error for invalid port, got nil")
	}
}

// TestLoadConfig_InvalidDeadlineRule проверяет валидацию правил дедлайнов
func TestLoadConfig_InvalidDeadlineRule(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `deadlines:
  rules:
    - kind: "SAFT"
      day_of_month: 31
      month_offset: 1
`

	if err := os.WriteFile(tempFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	if _, err := LoadConfig(tempFile); err == nil {
		t.Fatal("Expected error for day_of_month out of range, got nil")
	}
}

// TestLoadConfig_MissingFile проверяет ошибку при отсутствии файла
func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Expected error for missing config file, got nil")
	}
}

// TestConfig_Save проверяет сохранение конфигурации в YAML
func TestConfig_Save(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	target := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := config.Save(target); err != nil {
		t.Fatalf("Expected no error saving config, got %v", err)
	}

	reloaded, err := LoadConfig(target)
	if err != nil {
		t.Fatalf("Expected no error reloading config, got %v", err)
	}

	if reloaded.ANAF.BaseURL != config.ANAF.BaseURL {
		t.Errorf("Round-trip mismatch for ANAF base URL: %s", reloaded.ANAF.BaseURL)
	}
}
