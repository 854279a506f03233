package main

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	tempHome, err := os.MkdirTemp("", "feedsync-cmd-test-")
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = os.RemoveAll(tempHome)
	}()

	setEnvOrPanic := func(key, value string) {
		if err := os.Setenv(key, value); err != nil {
			panic(err)
		}
	}

	setEnvOrPanic("HOME", tempHome)
	setEnvOrPanic("FEEDSYNC_HOME", tempHome)
	setEnvOrPanic("FEEDSYNC_REFRESH_ENABLED", "false")

	os.Exit(m.Run())
}
