package main

import (
	"github.com/spf13/cobra"

	"manifold/internal/config"
	"manifold/internal/manifest"
)

// manifestParamFlags collect the caller-supplied manifest inputs shared by
// the run and manifest commands.
type manifestParamFlags struct {
	project     string
	owner       string
	toolVersion string
	upstream    []string
	transform   string
	deviceID    string
	recordingID string
	partitionDT string
}

func newManifestParamFlags() *manifestParamFlags {
	return &manifestParamFlags{}
}

func (f *manifestParamFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.project, "project", "", "Project label for the manifest session block")
	flags.StringVar(&f.owner, "owner", "", "Owner recorded in the manifest lineage")
	flags.StringVar(&f.toolVersion, "tool-version", "", "Tool version recorded on every manifest entry")
	flags.StringSliceVar(&f.upstream, "upstream", nil, "Upstream source identifiers for the manifest lineage")
	flags.StringVar(&f.transform, "transform", "", "Transform label for the manifest lineage")
	flags.StringVar(&f.deviceID, "device-id", "", "Device ID override (defaults to the configured device)")
	flags.StringVar(&f.recordingID, "recording-id", "", "Recording ID override (defaults to the configured recording)")
	flags.StringVar(&f.partitionDT, "partition-dt", "", "Partition date override (defaults to the earliest extracted timestamp)")
}

// build resolves flag values against the configuration: explicit flags
// win, then configured session identity, then the builder's fallbacks. A
// configured partition dt of "auto" keeps timestamp derivation.
func (f *manifestParamFlags) build(cfg *config.Config) manifest.Params {
	params := manifest.Params{
		Project:     f.project,
		Owner:       f.owner,
		ToolVersion: f.toolVersion,
		Upstream:    f.upstream,
		Transform:   f.transform,
		DeviceID:    f.deviceID,
		RecordingID: f.recordingID,
		PartitionDT: f.partitionDT,
	}
	if cfg == nil {
		return params
	}
	if params.DeviceID == "" {
		if params.DeviceID = cfg.PartitionKeys.DeviceID; params.DeviceID == "" {
			params.DeviceID = cfg.DeviceID
		}
	}
	if params.RecordingID == "" {
		if params.RecordingID = cfg.PartitionKeys.RecordingID; params.RecordingID == "" {
			params.RecordingID = cfg.RecordingID
		}
	}
	if params.PartitionDT == "" && cfg.PartitionKeys.DT != "auto" {
		params.PartitionDT = cfg.PartitionKeys.DT
	}
	return params
}

func newManifestCommand(ctx *commandContext) *cobra.Command {
	params := newManifestParamFlags()

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Write the dataset manifest from completed step summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			if err := p.Acquire(cmd.Context()); err != nil {
				return err
			}
			defer p.Release()

			cfg, _ := ctx.ensureConfig()
			return p.RunManifest(cmd.Context(), params.build(cfg))
		},
	}
	params.register(cmd)
	return cmd
}
