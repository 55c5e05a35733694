// config_test.go: Config validation and defaults (spec.md §3).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import "testing"

func TestConfig_Validate_RequiresName(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a missing Name")
	}
}

func TestConfig_Validate_ClampsReclaim(t *testing.T) {
	cfg := Config{Name: "x", Reclaim: -1}
	cfg.Validate()
	if cfg.Reclaim != DefaultReclaim {
		t.Errorf("expected Reclaim clamped to default, got %v", cfg.Reclaim)
	}

	cfg = Config{Name: "x", Reclaim: 1.5}
	cfg.Validate()
	if cfg.Reclaim != DefaultReclaim {
		t.Errorf("expected out-of-range Reclaim clamped to default, got %v", cfg.Reclaim)
	}
}

func TestConfig_Validate_ShardCountRoundsUp(t *testing.T) {
	cfg := Config{Name: "x", ShardCount: 5}
	cfg.Validate()
	if cfg.ShardCount != 8 {
		t.Errorf("expected ShardCount rounded up to 8, got %d", cfg.ShardCount)
	}
}

func TestConfig_Validate_DisablesLimitWhenNoMaxSize(t *testing.T) {
	cfg := Config{Name: "x", MaxSize: 0, LimitMode: LimitEvented}
	cfg.Validate()
	if cfg.LimitMode != LimitDisabled {
		t.Error("expected LimitMode forced to Disabled when MaxSize <= 0")
	}
}

func TestConfig_Validate_FillsDefaults(t *testing.T) {
	cfg := Config{Name: "x"}
	cfg.Validate()
	if cfg.Logger == nil || cfg.TimeProvider == nil || cfg.MetricsCollector == nil {
		t.Fatal("Validate must fill in nil Logger/TimeProvider/MetricsCollector")
	}
	if cfg.SyncHookTimeout <= 0 {
		t.Error("expected a positive default SyncHookTimeout")
	}
}

func TestDefaultConfig_HasUsableName(t *testing.T) {
	cfg := DefaultConfig("mycache")
	if cfg.Name != "mycache" {
		t.Errorf("expected name mycache, got %s", cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig output should validate cleanly, got %v", err)
	}
}

func TestConfig_Validate_NegativeJanitorIntervalClampedToZero(t *testing.T) {
	cfg := Config{Name: "x", JanitorInterval: -5}
	cfg.Validate()
	if cfg.JanitorInterval != 0 {
		t.Errorf("expected negative JanitorInterval clamped to 0, got %v", cfg.JanitorInterval)
	}
}
