package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Manifest is an optional YAML run description. Every field maps to a
// flag; explicitly set flags win over manifest values, so a manifest
// can hold the long-lived parts of a migration (roots, limit, db)
// while --rescan and friends stay per-invocation:
//
//	source: /mnt/share-a
//	dest: /mnt/share-b
//	bwlimit: 40M
//	checksum: blake2b
//	deleteExtras: true
type Manifest struct {
	Source        string `yaml:"source"`
	Dest          string `yaml:"dest"`
	DB            string `yaml:"db"`
	Log           string `yaml:"log"`
	BWLimit       string `yaml:"bwlimit"`
	Checksum      string `yaml:"checksum"`
	DeleteExtras  *bool  `yaml:"deleteExtras"`
	Rescan        *bool  `yaml:"rescan"`
	BlockSize     string `yaml:"blockSize"`
	QueueCapacity *int   `yaml:"queueCapacity"`
	MetricsAddr   string `yaml:"metricsAddr"`
}

func loadManifest(path string) (*Manifest, error) {
	if path == "" {
		return &Manifest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// applyDefaults copies manifest values into flags the user did not set
func (m *Manifest) applyDefaults(cmd *cobra.Command) {
	setString := func(flag, val string) {
		if val != "" && !cmd.Flags().Changed(flag) {
			cmd.Flags().Set(flag, val)
		}
	}
	setString("source", m.Source)
	setString("dest", m.Dest)
	setString("db", m.DB)
	setString("log", m.Log)
	setString("bwlimit", m.BWLimit)
	setString("checksum", m.Checksum)
	setString("block-size", m.BlockSize)
	setString("metrics-addr", m.MetricsAddr)

	if m.DeleteExtras != nil && !cmd.Flags().Changed("delete-extras") {
		cmd.Flags().Set("delete-extras", fmt.Sprintf("%t", *m.DeleteExtras))
	}
	if m.Rescan != nil && !cmd.Flags().Changed("rescan") {
		cmd.Flags().Set("rescan", fmt.Sprintf("%t", *m.Rescan))
	}
	if m.QueueCapacity != nil && !cmd.Flags().Changed("queue-capacity") {
		cmd.Flags().Set("queue-capacity", fmt.Sprintf("%d", *m.QueueCapacity))
	}
}
