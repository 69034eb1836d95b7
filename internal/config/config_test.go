package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aws_details.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"aws_access_key_id": "AKIAEXAMPLE",
		"aws_secret_access_key": "secret",
		"region": "eu-central-1",
		"DB_username": "admin",
		"DB_password": "hunter2",
		"name_suffix": "4711"
	}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", s.AccessKeyID)
	assert.Equal(t, "eu-central-1", s.Region)
	assert.Equal(t, "admin", s.DBUsername)
	assert.Equal(t, "4711", s.NameSuffix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_MissingField(t *testing.T) {
	path := writeConfig(t, `{
		"aws_access_key_id": "AKIAEXAMPLE",
		"aws_secret_access_key": "secret",
		"region": "eu-central-1",
		"DB_username": "admin"
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_password")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"aws_access_key_id": "AKIAEXAMPLE",
		"aws_secret_access_key": "secret",
		"region": "eu-central-1",
		"DB_username": "admin",
		"DB_password": "hunter2"
	}`)
	t.Setenv("DWCTL_REGION", "us-east-1")
	t.Setenv("DWCTL_NAME_SUFFIX", "999")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.Region)
	assert.Equal(t, "999", s.NameSuffix)
}

func TestValidate_EmptyIsInvalid(t *testing.T) {
	var s Settings
	assert.Error(t, s.Validate())
}
