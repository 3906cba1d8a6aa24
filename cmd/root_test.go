package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func thresholdFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64P("threshold", "t", 0, "")
	return flags
}

func TestStageOptionsDefaultThreshold(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	if got := stageOptions(thresholdFlags(t)).Threshold; got != 0.3 {
		t.Fatalf("expected the built-in default 0.3, got %v", got)
	}
}

func TestStageOptionsHonorsExplicitZeroConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	// Zero selects every ingested candidate and must not be mistaken for
	// "unset".
	viper.Set("threshold", 0.0)
	if got := stageOptions(thresholdFlags(t)).Threshold; got != 0 {
		t.Fatalf("explicit threshold 0 was ignored; got %v", got)
	}
}

func TestStageOptionsHonorsExplicitZeroFlag(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	flags := thresholdFlags(t)
	if err := flags.Set("threshold", "0"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	if got := stageOptions(flags).Threshold; got != 0 {
		t.Fatalf("explicit --threshold 0 was ignored; got %v", got)
	}
}

func TestStageOptionsFlagWinsOverConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("threshold", 0.7)
	flags := thresholdFlags(t)
	if err := flags.Set("threshold", "0.1"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	if got := stageOptions(flags).Threshold; got != 0.1 {
		t.Fatalf("flag must win over config, got %v", got)
	}
}
