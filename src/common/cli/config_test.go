package cli

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/rsuntk/kbuild/src/common/logs"
	"github.com/spf13/viper"
)

func TestInitLogger_HonorsConfiguredLevel(t *testing.T) {
	viper.Reset()
	t.Cleanup(func() {
		viper.Reset()
		logs.Configure(logs.DefaultConfig())
	})

	viper.Set("log.output", "stderr")
	viper.Set("log.level", "debug")

	logger := InitLogger("kbuild")
	if logger.GetLevel() != log.DebugLevel {
		t.Errorf("expected debug level, got %v", logger.GetLevel())
	}
	if logger != logs.NewDefault() {
		t.Error("expected InitLogger to configure the shared default logger")
	}
}
