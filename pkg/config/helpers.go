package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Keys lists the keys understood by SetValue and GetValue, in display order.
var Keys = []string{
	"mirror.base_url",
	"mirror.dist",
	"mirror.components",
	"mirror.variant",
	"out_dir",
	"extract_dir",
	"verify_checksum",
	"delete_after_extract",
	"package_source",
	"latest_only",
	"http_timeout",
	"user_agent",
	"log_level",
	"hooks.dir",
	"hooks.post_extract",
	"hooks.post_sync",
}

// SetValue sets a configuration value by key. Components are given as a
// comma-separated list. The result is not validated; call Validate before
// saving.
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "mirror.base_url":
		c.Mirror.BaseURL = value
	case "mirror.dist":
		c.Mirror.Dist = value
	case "mirror.components":
		c.Mirror.Components = splitList(value)
	case "mirror.variant":
		c.Mirror.Variant = value
	case "out_dir":
		c.Settings.OutDir = value
	case "extract_dir":
		c.Settings.ExtractDir = value
	case "verify_checksum":
		boolVal, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Settings.VerifyChecksum = &boolVal
	case "delete_after_extract":
		boolVal, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Settings.DeleteAfterExtract = boolVal
	case "package_source":
		c.Settings.PackageSource = value
	case "latest_only":
		boolVal, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Settings.LatestOnly = boolVal
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		c.Settings.HTTPTimeout = d
	case "user_agent":
		c.Settings.UserAgent = value
	case "log_level":
		c.Settings.LogLevel = value
	case "hooks.dir":
		c.Hooks.Dir = value
	case "hooks.post_extract":
		c.Hooks.PostExtract = value
	case "hooks.post_sync":
		c.Hooks.PostSync = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetValue returns the value of key as a string.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "mirror.base_url":
		return c.Mirror.BaseURL, nil
	case "mirror.dist":
		return c.Mirror.Dist, nil
	case "mirror.components":
		return strings.Join(c.Mirror.Components, ","), nil
	case "mirror.variant":
		return c.Mirror.Variant, nil
	case "out_dir":
		return c.Settings.OutDir, nil
	case "extract_dir":
		return c.Settings.ExtractDir, nil
	case "verify_checksum":
		return strconv.FormatBool(c.VerifyChecksums()), nil
	case "delete_after_extract":
		return strconv.FormatBool(c.Settings.DeleteAfterExtract), nil
	case "package_source":
		return c.Settings.PackageSource, nil
	case "latest_only":
		return strconv.FormatBool(c.Settings.LatestOnly), nil
	case "http_timeout":
		return c.Settings.HTTPTimeout.String(), nil
	case "user_agent":
		return c.Settings.UserAgent, nil
	case "log_level":
		return c.Settings.LogLevel, nil
	case "hooks.dir":
		return c.Hooks.Dir, nil
	case "hooks.post_extract":
		return c.Hooks.PostExtract, nil
	case "hooks.post_sync":
		return c.Hooks.PostSync, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// ToMap returns every key with its current value.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		value, _ := c.GetValue(key)
		result[key] = value
	}
	return result
}

func parseBool(key, value string) (bool, error) {
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value for %s: %s", key, value)
	}
	return boolVal, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
