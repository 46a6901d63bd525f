// Package util provides shared utility functions.
package util

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrBinaryNotFound is returned when no candidate location holds an executable.
var ErrBinaryNotFound = errors.New("binary not found")

// Binary environment overrides.
const (
	EnvYTDLPBinary  = "STREAMSIFT_YTDLP_BINARY"
	EnvFFmpegBinary = "STREAMSIFT_FFMPEG_BINARY"
)

// FindBinary resolves an executable. Search order:
//  1. configured (explicit path from configuration)
//  2. the environment variable envVar
//  3. ./name
//  4. name on PATH
func FindBinary(name, envVar, configured string) (string, error) {
	if configured != "" {
		if isExecutable(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("%w: configured path %s is not executable", ErrBinaryNotFound, configured)
	}

	if envVar != "" {
		if envPath := os.Getenv(envVar); envPath != "" && isExecutable(envPath) {
			return envPath, nil
		}
	}

	localPath := "./" + name
	if isExecutable(localPath) {
		return localPath, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
