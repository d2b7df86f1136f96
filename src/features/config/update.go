package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Update is a partial configuration change as accepted by POST /config.
// Absent fields leave the current value untouched.
type Update struct {
	Host         *string   `json:"xiaozhishop_host"`
	Port         *flexInt  `json:"xiaozhishop_port"`
	HTTPS        *flexBool `json:"xiaozhishop_https"`
	CacheMaxSize *flexInt  `json:"cache_max_size"`
}

// Empty reports whether u carries no field at all.
func (u Update) Empty() bool {
	return u.Host == nil && u.Port == nil && u.HTTPS == nil && u.CacheMaxSize == nil
}

func (u Update) applyTo(cfg *Config) {
	if u.Host != nil {
		cfg.Upstream.Host = strings.TrimSpace(*u.Host)
	}
	if u.Port != nil {
		cfg.Upstream.Port = int(*u.Port)
	}
	if u.HTTPS != nil {
		cfg.Upstream.HTTPS = bool(*u.HTTPS)
	}
	if u.CacheMaxSize != nil {
		cfg.Cache.MaxSize = int(*u.CacheMaxSize)
	}
}

// flexInt accepts both 5005 and "5005".
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	*i = flexInt(n)
	return nil
}

// flexBool accepts true, "true", 1 and "1" style values.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	v, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return fmt.Errorf("invalid boolean %s", data)
	}
	*b = flexBool(v)
	return nil
}
