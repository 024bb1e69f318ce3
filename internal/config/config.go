package config

import (
	"fmt"
	"meetgate/internal/dataType"
	"meetgate/internal/utils"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type MainConfig struct {
	Port                string   `yaml:"port"`
	WebPath             string   `yaml:"web_path"`
	PagePath            string   `yaml:"page_path"`
	RulePath            string   `yaml:"rule_path"`
	LogPath             string   `yaml:"log_path"`
	NodeName            string   `yaml:"node_name"`
	HomeRoute           string   `yaml:"home_route"`
	MeetingAPI          string   `yaml:"meeting_api"`
	LocationAPI         string   `yaml:"location_api"`
	OtpMailAPI          string   `yaml:"otp_mail_api"`
	RequestAPI          string   `yaml:"request_api"`
	NatsURL             string   `yaml:"nats_url"`
	NatsSubject         string   `yaml:"nats_subject"`
	ConnectingIPHeaders []string `yaml:"connecting_ip_headers"`
}

// LoadMainConfig Read the configuration file and return the configuration object
func LoadMainConfig(basePath string) (*MainConfig, error) {

	defaultCfg := MainConfig{
		Port:                "25888",
		WebPath:             "/gate",
		PagePath:            "/www/meetgate/config/pages",
		RulePath:            "/www/meetgate/config/rules",
		LogPath:             "/www/meetgate/log/",
		NodeName:            "Meet Gate",
		HomeRoute:           "/",
		MeetingAPI:          "http://127.0.0.1:3000/api/meetings",
		LocationAPI:         "https://mani.pythonanywhere.com/",
		OtpMailAPI:          "http://127.0.0.1:3000/api/send-otp",
		RequestAPI:          "http://127.0.0.1:3000/api/meeting-requests",
		NatsSubject:         "meetgate.request.created",
		ConnectingIPHeaders: []string{"Gate-Real-IP"},
	}

	exePath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	if basePath == "" {
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "meetgate.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return &defaultCfg, err
	}

	var cfg MainConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &defaultCfg, err
	}

	if cfg.HomeRoute == "" {
		cfg.HomeRoute = defaultCfg.HomeRoute
	}
	if _, err := utils.ValidateInternalRedirectPath(cfg.HomeRoute); err != nil {
		return nil, fmt.Errorf("invalid home_route %q: %w", cfg.HomeRoute, err)
	}

	return &cfg, nil
}

// RuleSet stores all gate rules
type RuleSet struct {
	OTPRule *dataType.OTPRule
}

// ruleSetWrapper
type ruleSetWrapper struct {
	OTPRule otpRuleWrapper `yaml:"OTP"`
}

type otpRuleWrapper struct {
	Enabled      bool     `yaml:"enabled"`
	FailureLimit []string `yaml:"failure_limit"`
}

// LoadRules Load all gate rules from the specified path
func LoadRules(rulePath string) (*RuleSet, error) {
	rs := RuleSet{
		OTPRule: &dataType.OTPRule{},
	}

	YAMLFile := filepath.Join(rulePath, "Gate.yml")
	if err := loadGateRules(YAMLFile, &rs); err != nil {
		return nil, err
	}

	return &rs, nil
}

func loadGateRules(YAMLFile string, rs *RuleSet) error {
	yamlData, err := os.ReadFile(YAMLFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("[ERROR] rules file %s does not exist: %w", YAMLFile, err)
		}
		return fmt.Errorf("[ERROR] failed to read rules file %s: %w", YAMLFile, err)
	}

	var wrapper ruleSetWrapper
	if err := yaml.Unmarshal(yamlData, &wrapper); err != nil {
		return fmt.Errorf("[ERROR] failed to parse rules file %s: %w", YAMLFile, err)
	}

	rs.OTPRule.Enabled = wrapper.OTPRule.Enabled
	rs.OTPRule.FailureLimit = make(map[int64]int64)

	for _, s := range wrapper.OTPRule.FailureLimit {
		limit, seconds, err := utils.ParseRate(s)
		if err != nil {
			return err
		}
		rs.OTPRule.FailureLimit[seconds] = limit
	}

	return nil
}
