package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_Environment(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, "freesurfer.env")
	content := "FREESURFER_HOME=/opt/freesurfer-7.4.1\nSUBJECTS_DIR=/tmp/subjects\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	c := validConfig()
	c.EnvFile = envFile

	env, err := c.Environment([]string{"PATH=/usr/bin", "FS_LICENSE=/old/license.txt", "FREESURFER_HOME=/usr/local/freesurfer"})
	if err != nil {
		t.Fatalf("Environment failed: %v", err)
	}

	checks := map[string]string{
		"PATH":            "/usr/bin",
		"FS_LICENSE":      "/opt/license.txt",
		"FREESURFER_HOME": "/opt/freesurfer-7.4.1",
		"SUBJECTS_DIR":    "/tmp/subjects",
	}
	for k, want := range checks {
		if got := LookupEnv(env, k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if len(env) != 4 {
		t.Errorf("expected 4 variables without duplicates, got %v", env)
	}
}

func TestConfig_EnvironmentHomeOverride(t *testing.T) {
	c := validConfig()
	c.FreeSurferHome = "/custom/fs"

	env, err := c.Environment([]string{"FREESURFER_HOME=/usr/local/freesurfer"})
	if err != nil {
		t.Fatalf("Environment failed: %v", err)
	}

	target, err := FSAverage(env)
	if err != nil {
		t.Fatalf("FSAverage failed: %v", err)
	}
	if target != "/custom/fs/subjects/fsaverage" {
		t.Errorf("FSAverage = %q", target)
	}
}

func TestConfig_EnvironmentMissingFile(t *testing.T) {
	c := validConfig()
	c.EnvFile = filepath.Join(t.TempDir(), "missing.env")

	if _, err := c.Environment(nil); err == nil {
		t.Error("expected error for missing env file")
	}
}

func TestFSAverage_Unset(t *testing.T) {
	_, err := FSAverage([]string{"PATH=/bin"})
	if !errors.Is(err, ErrNoFreeSurferHome) {
		t.Errorf("expected ErrNoFreeSurferHome, got %v", err)
	}
}

func TestSetEnv(t *testing.T) {
	env := SetEnv([]string{"A=1", "AB=2"}, "A", "3")
	if len(env) != 2 || env[0] != "A=3" || env[1] != "AB=2" {
		t.Errorf("SetEnv replaced wrong entry: %v", env)
	}
	env = SetEnv(env, "C", "4")
	if LookupEnv(env, "C") != "4" {
		t.Errorf("SetEnv did not append: %v", env)
	}
}
