package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// AuthType selects how credentials are attached to scrape requests
type AuthType string

const (
	AuthTypeBasic  AuthType = "basic"
	AuthTypeCookie AuthType = "cookie"
	AuthTypeHeader AuthType = "header"
)

// Valid reports whether the auth type is one the request builder understands.
// The empty value is valid and means no credentials.
func (a AuthType) Valid() bool {
	switch a {
	case "", AuthTypeBasic, AuthTypeCookie, AuthTypeHeader:
		return true
	}
	return false
}

// AuthDetection records that a scrape or access check ran into an auth or login wall
type AuthDetection struct {
	Reason     string    `json:"reason"`
	URL        string    `json:"url,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// SourceConfig is the per-source configuration blob. Known keys are typed;
// anything else survives round trips through Extra.
type SourceConfig struct {
	AuthRequired bool           `json:"auth_required,omitempty"`
	AuthType     AuthType       `json:"auth_type,omitempty"`
	Username     string         `json:"username,omitempty"`
	Password     string         `json:"password,omitempty"`
	Cookie       string         `json:"cookie,omitempty"`
	HeaderName   string         `json:"header_name,omitempty"`
	HeaderValue  string         `json:"header_value,omitempty"`
	Detected     *AuthDetection `json:"auth_required_detected,omitempty"`
	Extra        map[string]any `json:"-"`
}

var sourceConfigKeys = []string{
	"auth_required", "auth_type", "username", "password",
	"cookie", "header_name", "header_value", "auth_required_detected",
}

// Validate checks the auth settings for consistency
func (c SourceConfig) Validate() error {
	if !c.AuthType.Valid() {
		return fmt.Errorf("unsupported auth_type %q", c.AuthType)
	}
	if !c.AuthRequired {
		return nil
	}
	switch c.AuthType {
	case AuthTypeBasic:
		if c.Username == "" {
			return fmt.Errorf("basic auth requires username")
		}
	case AuthTypeCookie:
		if c.Cookie == "" {
			return fmt.Errorf("cookie auth requires cookie")
		}
	case AuthTypeHeader:
		if c.HeaderName == "" {
			return fmt.Errorf("header auth requires header_name")
		}
	}
	return nil
}

// RecordDetection stores a detected auth requirement without touching any other key
func (c *SourceConfig) RecordDetection(reason, url string, at time.Time) {
	c.Detected = &AuthDetection{Reason: reason, URL: url, DetectedAt: at.UTC()}
}

// MarshalJSON flattens Extra next to the typed keys
func (c SourceConfig) MarshalJSON() ([]byte, error) {
	type plain SourceConfig
	known, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]any, len(c.Extra)+len(sourceConfigKeys))
	for k, v := range c.Extra {
		merged[k] = v
	}
	var typed map[string]any
	if err := json.Unmarshal(known, &typed); err != nil {
		return nil, err
	}
	for k, v := range typed {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits a config object into typed keys and Extra
func (c *SourceConfig) UnmarshalJSON(data []byte) error {
	type plain SourceConfig
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range sourceConfigKeys {
		delete(all, k)
	}
	*c = SourceConfig(p)
	if len(all) > 0 {
		c.Extra = all
	}
	return nil
}

// Value implements driver.Valuer
func (c SourceConfig) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (c *SourceConfig) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = SourceConfig{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SourceConfig", src)
	}
	if len(data) == 0 {
		*c = SourceConfig{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// GormDBDataType stores the config as jsonb on postgres and text elsewhere
func (SourceConfig) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}
