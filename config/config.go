//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package config loads the settings shared by the speadcap and
// speadsend tools from a TOML file, grounded on the teacher's
// cmd/storageserv/config/config.go Config struct and
// toml.DecodeFile-based LoadConfig pattern.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"spead/flavour"
)

// FlavourConfig is the TOML table naming a wire flavour, decoded into
// a flavour.Flavour via ToFlavour.
type FlavourConfig struct {
	PointerWidthBits int    `toml:"pointer_width_bits"`
	HeapAddressBits  int    `toml:"heap_address_bits"`
	BugCompat        uint32 `toml:"bug_compat"`
}

// ToFlavour converts the decoded table into a flavour.Flavour,
// applying the package default when the table was left empty.
func (f FlavourConfig) ToFlavour() flavour.Flavour {
	if f.PointerWidthBits == 0 && f.HeapAddressBits == 0 {
		return flavour.Default()
	}
	return flavour.Flavour{
		PointerWidthBits: f.PointerWidthBits,
		HeapAddressBits:  f.HeapAddressBits,
		BugCompatMask:    flavour.BugCompat(f.BugCompat),
	}
}

// Config holds every setting both cmd/speadcap and cmd/speadsend read
// out of a TOML file.
type Config struct {
	MaxHeaps           int           `toml:"max_heaps"`
	WorkerThreads      int           `toml:"worker_threads"`
	RingBufferCapacity uint32        `toml:"ring_buffer_capacity"`
	Flavour            FlavourConfig `toml:"flavour"`

	ListenAddr string `toml:"listen_addr"`
	Multicast  string `toml:"multicast_group"`

	CapturePath   string `toml:"capture_path"`
	CaptureSnappy bool   `toml:"capture_snappy"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		MaxHeaps:           8,
		WorkerThreads:      4,
		RingBufferCapacity: 64,
		Flavour:            FlavourConfig{PointerWidthBits: 64, HeapAddressBits: 40},
	}
}

// Load decodes path into a Config seeded with Default, so a partial
// file only needs to name the fields it wants to override.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("spead: loading config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects a configuration the rest of the module could not
// safely run with.
func (c Config) Validate() error {
	if c.MaxHeaps <= 0 {
		return fmt.Errorf("spead: max_heaps must be positive, got %d", c.MaxHeaps)
	}
	if c.WorkerThreads <= 0 {
		return fmt.Errorf("spead: worker_threads must be positive, got %d", c.WorkerThreads)
	}
	if c.RingBufferCapacity == 0 {
		return fmt.Errorf("spead: ring_buffer_capacity must be positive, got %d", c.RingBufferCapacity)
	}
	return c.Flavour.ToFlavour().Validate()
}
