package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	environmentKeyApplicationAddress = "APP_ADDR"
	environmentKeyDatabaseDriver     = "DB_DRIVER"
	environmentKeyDatabaseDataSource = "DB_DSN"
	environmentKeyAdminBearerToken   = "ADMIN_BEARER_TOKEN"
	environmentKeySMTPHost           = "SMTP_HOST"
	environmentKeySMTPPort           = "SMTP_PORT"
	environmentKeyEmailFrom          = "EMAIL_FROM"
	environmentKeyAdminEmail         = "ADMIN_EMAIL"

	driverNameSQLite   = "sqlite"
	driverNamePostgres = "postgres"
)

var requiredEnvironmentKeys = []string{
	environmentKeyDatabaseDriver,
	environmentKeyDatabaseDataSource,
}

var emailEnvironmentKeys = []string{
	environmentKeySMTPHost,
	environmentKeyEmailFrom,
	environmentKeyAdminEmail,
}

var placeholderValueMarkers = []string{
	"changeme",
	"change-me",
	"your-",
	"<",
	"${",
}

type stringList []string

func (list *stringList) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*list = nil
		return nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		value := strings.TrimSpace(node.Value)
		if value == "" {
			*list = nil
			return nil
		}
		*list = []string{value}
		return nil
	case yaml.SequenceNode:
		entries := make([]string, 0, len(node.Content))
		for _, child := range node.Content {
			if child == nil {
				continue
			}
			value := strings.TrimSpace(child.Value)
			if value == "" {
				continue
			}
			entries = append(entries, value)
		}
		*list = entries
		return nil
	default:
		return fmt.Errorf("unsupported yaml node kind %d for list", node.Kind)
	}
}

type environmentMap map[string]string

func (environment *environmentMap) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*environment = nil
		return nil
	}
	switch node.Kind {
	case yaml.MappingNode:
		decoded := make(map[string]string)
		if err := node.Decode(&decoded); err != nil {
			return err
		}
		normalized := make(map[string]string, len(decoded))
		for key, value := range decoded {
			normalized[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
		*environment = normalized
		return nil
	case yaml.SequenceNode:
		decoded := make([]string, 0, len(node.Content))
		if err := node.Decode(&decoded); err != nil {
			return err
		}
		normalized := make(map[string]string)
		for _, entry := range decoded {
			trimmed := strings.TrimSpace(entry)
			if trimmed == "" {
				continue
			}
			key, value, ok := strings.Cut(trimmed, "=")
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if !ok {
				normalized[key] = ""
				continue
			}
			normalized[key] = strings.TrimSpace(value)
		}
		*environment = normalized
		return nil
	default:
		return fmt.Errorf("unsupported yaml node kind %d for environment", node.Kind)
	}
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	EnvFile     stringList     `yaml:"env_file"`
	Environment environmentMap `yaml:"environment"`
	Ports       stringList     `yaml:"ports"`
	OtherKeys   map[string]any `yaml:",inline"`
}

type auditResult struct {
	errors   []string
	warnings []string
}

func (result *auditResult) addError(message string, arguments ...any) {
	result.errors = append(result.errors, fmt.Sprintf(message, arguments...))
}

func (result *auditResult) addWarning(message string, arguments ...any) {
	result.warnings = append(result.warnings, fmt.Sprintf(message, arguments...))
}

func (result auditResult) ok() bool {
	return len(result.errors) == 0
}

func main() {
	var envFilePath string
	var composeFilePath string
	flag.StringVar(&envFilePath, "env-file", ".env", "path to the backend env file")
	flag.StringVar(&composeFilePath, "compose-file", "", "optional docker compose file to cross-check")
	flag.Parse()

	result := runAudit(envFilePath, composeFilePath)

	for _, warning := range result.warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	for _, auditError := range result.errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", auditError)
	}

	if !result.ok() {
		os.Exit(1)
	}
	fmt.Println("configuration audit passed")
}

func runAudit(envFilePath string, composeFilePath string) auditResult {
	var result auditResult

	environment, envErr := godotenv.Read(envFilePath)
	if envErr != nil {
		result.addError("read env file %s: %v", envFilePath, envErr)
		return result
	}

	auditEnvironment(environment, &result)

	if composeFilePath != "" {
		auditComposeFile(composeFilePath, environment, &result)
	}

	return result
}

func auditEnvironment(environment map[string]string, result *auditResult) {
	for _, key := range requiredEnvironmentKeys {
		if strings.TrimSpace(environment[key]) == "" {
			result.addError("required env %s is missing or empty", key)
		}
	}

	driverName := strings.TrimSpace(environment[environmentKeyDatabaseDriver])
	if driverName != "" && driverName != driverNameSQLite && driverName != driverNamePostgres {
		result.addError("env %s: unsupported database driver %q", environmentKeyDatabaseDriver, driverName)
	}

	if address := strings.TrimSpace(environment[environmentKeyApplicationAddress]); address != "" {
		checkListenAddress(address, result)
	}

	if portValue := strings.TrimSpace(environment[environmentKeySMTPPort]); portValue != "" {
		if _, parseErr := strconv.Atoi(portValue); parseErr != nil {
			result.addError("env %s: %q is not a number", environmentKeySMTPPort, portValue)
		}
	}

	checkEmailConfiguration(environment, result)

	if strings.TrimSpace(environment[environmentKeyAdminBearerToken]) == "" {
		result.addWarning("env %s is empty, admin endpoints will be disabled", environmentKeyAdminBearerToken)
	}

	for key, value := range environment {
		if holdsPlaceholderValue(value) {
			result.addError("env %s still holds placeholder value %q", key, value)
		}
	}
}

// checkEmailConfiguration flags a partially configured email transport: the
// server treats anything short of the full set as disabled.
func checkEmailConfiguration(environment map[string]string, result *auditResult) {
	var present []string
	var missing []string
	for _, key := range emailEnvironmentKeys {
		if strings.TrimSpace(environment[key]) == "" {
			missing = append(missing, key)
		} else {
			present = append(present, key)
		}
	}

	if len(present) == 0 {
		result.addWarning("email transport is not configured, notifications will be skipped")
		return
	}
	if len(missing) > 0 {
		result.addError("email transport is partially configured: %s set but %s missing",
			strings.Join(present, ", "), strings.Join(missing, ", "))
	}
}

func checkListenAddress(address string, result *auditResult) {
	portPart := address
	if index := strings.LastIndex(address, ":"); index >= 0 {
		portPart = address[index+1:]
	}
	portNumber, parseErr := strconv.Atoi(portPart)
	if parseErr != nil || portNumber < 1 || portNumber > 65535 {
		result.addError("env %s: %q is not a valid listen address", environmentKeyApplicationAddress, address)
	}
}

func holdsPlaceholderValue(value string) bool {
	lowered := strings.ToLower(strings.TrimSpace(value))
	for _, marker := range placeholderValueMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func auditComposeFile(composeFilePath string, environment map[string]string, result *auditResult) {
	payload, readErr := os.ReadFile(composeFilePath)
	if readErr != nil {
		result.addError("read compose file %s: %v", composeFilePath, readErr)
		return
	}

	var compose composeFile
	if decodeErr := yaml.Unmarshal(payload, &compose); decodeErr != nil {
		result.addError("parse compose file %s: %v", composeFilePath, decodeErr)
		return
	}
	if len(compose.Services) == 0 {
		result.addError("compose file %s: no services defined", composeFilePath)
		return
	}

	composeDirectory := filepath.Dir(composeFilePath)
	hostPortToService := make(map[string]string)

	serviceNames := make([]string, 0, len(compose.Services))
	for serviceName := range compose.Services {
		serviceNames = append(serviceNames, serviceName)
	}
	sort.Strings(serviceNames)

	for _, serviceName := range serviceNames {
		service := compose.Services[serviceName]

		for _, envFile := range service.EnvFile {
			envFilePath := filepath.Join(composeDirectory, envFile)
			if _, statErr := os.Stat(envFilePath); statErr != nil {
				result.addError("service %s: env_file %s is missing (%v)", serviceName, envFile, statErr)
			}
		}

		for key, value := range service.Environment {
			placeholderName, isPlaceholder := strings.CutPrefix(value, "${")
			if !isPlaceholder {
				continue
			}
			placeholderName = strings.TrimSuffix(placeholderName, "}")
			if strings.TrimSpace(environment[placeholderName]) == "" {
				result.addError("service %s: %s references ${%s} but %s is not defined in env", serviceName, key, placeholderName, placeholderName)
			}
		}

		checkHostPortCollisions(serviceName, service.Ports, hostPortToService, result)
	}
}

func checkHostPortCollisions(serviceName string, ports []string, hostPortToService map[string]string, result *auditResult) {
	for _, mapping := range ports {
		trimmed := strings.TrimSpace(mapping)
		if trimmed == "" {
			continue
		}
		hostPort, ok := parseHostPort(trimmed)
		if !ok {
			continue
		}
		if existingService, already := hostPortToService[hostPort]; already {
			result.addError("compose: host port %s is published by both %s and %s", hostPort, existingService, serviceName)
		} else {
			hostPortToService[hostPort] = serviceName
		}
	}
}

func parseHostPort(portMapping string) (string, bool) {
	trimmed := strings.Trim(portMapping, `"`)
	parts := strings.Split(trimmed, ":")
	if len(parts) < 2 {
		return "", false
	}
	hostPort := strings.TrimSpace(parts[len(parts)-2])
	if hostPort == "" {
		return "", false
	}
	for _, runeValue := range hostPort {
		if runeValue < '0' || runeValue > '9' {
			return "", false
		}
	}
	return hostPort, true
}
