package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/librestore/pkg/errors"
)

var durationType = reflect.TypeOf(time.Duration(0))

// SetValue sets a setting by its YAML key, parsing value for the field's type.
// Durations use Go duration syntax ("30s", "2m").
func (c *Config) SetValue(key, value string) error {
	field, ok := settingField(reflect.ValueOf(&c.Settings).Elem(), key)
	if !ok {
		return errors.Wrapf(errors.ErrUnknownConfigKey, "%s", key)
	}

	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		field.SetBool(b)
	case field.Kind() == reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		field.SetInt(int64(n))
	default:
		field.SetString(value)
	}
	return nil
}

// GetValue returns a setting by its YAML key.
func (c *Config) GetValue(key string) (string, error) {
	v, ok := c.ToMap()[key]
	if !ok {
		return "", errors.Wrapf(errors.ErrUnknownConfigKey, "%s", key)
	}
	return v, nil
}

// ToMap returns every setting keyed by its YAML name.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)

	settingsValue := reflect.ValueOf(c.Settings)
	settingsType := settingsValue.Type()

	for i := 0; i < settingsValue.NumField(); i++ {
		yamlKey, ok := yamlName(settingsType.Field(i))
		if !ok {
			continue
		}

		fieldValue := settingsValue.Field(i)
		var strValue string
		switch {
		case fieldValue.Type() == durationType:
			strValue = time.Duration(fieldValue.Int()).String()
		case fieldValue.Kind() == reflect.Bool:
			strValue = strconv.FormatBool(fieldValue.Bool())
		case fieldValue.Kind() == reflect.Int:
			strValue = strconv.FormatInt(fieldValue.Int(), 10)
		case fieldValue.Kind() == reflect.String:
			strValue = fieldValue.String()
		default:
			strValue = fmt.Sprintf("%v", fieldValue.Interface())
		}
		result[yamlKey] = strValue
	}

	return result
}

// Keys returns the YAML keys of all settings in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name, ok := yamlName(t.Field(i)); ok {
			keys = append(keys, name)
		}
	}
	return keys
}

func settingField(settings reflect.Value, key string) (reflect.Value, bool) {
	t := settings.Type()
	for i := 0; i < t.NumField(); i++ {
		if name, ok := yamlName(t.Field(i)); ok && name == key {
			return settings.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// yamlName handles yaml tags with options (e.g., "cache_dir,omitempty").
func yamlName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return "", false
	}
	return strings.Split(tag, ",")[0], true
}
