package config

const (
	defaultRGBFrames    = "rgb/frames"
	defaultETLeft       = "et/left"
	defaultETRight      = "et/right"
	defaultAudioChunks  = "audio"
	defaultSensorsDir   = "sensors"
	defaultManifestDir  = "manifest"
	defaultChunkSamples = 4096
	defaultPartitionDT  = "auto"
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
)

// DefaultQualityFlags is the enabled flag order when the document omits
// quality_flags.enabled.
var DefaultQualityFlags = []string{"blur", "drop_frame", "audio_clipping"}

// Default returns a Config populated with repository defaults. Session
// identity fields stay empty; Validate requires them.
func Default() Config {
	return Config{
		RGB:   RGB{Export: true},
		ET:    ET{Export: true, Left: true, Right: true},
		Audio: Audio{Export: true, ChunkSamples: defaultChunkSamples},
		IMU:   StreamToggle{Export: true},
		GPS:   StreamToggle{Export: true},
		Wifi:  StreamToggle{Export: true},
		BT:    StreamToggle{Export: true},
		Paths: Paths{
			RGBFrames:   defaultRGBFrames,
			ETLeft:      defaultETLeft,
			ETRight:     defaultETRight,
			AudioChunks: defaultAudioChunks,
			SensorsDir:  defaultSensorsDir,
			ManifestDir: defaultManifestDir,
		},
		PartitionKeys: PartitionKeys{DT: defaultPartitionDT},
		QualityFlags:  QualityFlags{Enabled: append([]string{}, DefaultQualityFlags...)},
		Logging:       Logging{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}
