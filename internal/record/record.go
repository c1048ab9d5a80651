// Package record models decoded sensor records as a tagged variant: one
// fixed shape per sensor kind, optional fields paired with explicit
// validity flags. Records are transient — they exist between the provider
// and the serialized JSONL line, never on disk.
package record

// Kind identifies the decoded payload variant a record carries.
type Kind string

const (
	KindImage     Kind = "image"
	KindAudio     Kind = "audio"
	KindMotion    Kind = "motion"
	KindGPS       Kind = "gps"
	KindWifi      Kind = "wifi"
	KindBluetooth Kind = "bluetooth"
)

// Record is one provider-delivered sensor sample. TsNs is device time in
// nanoseconds; exactly one payload pointer matching Kind is set.
type Record struct {
	TsNs     int64
	StreamID string
	Kind     Kind

	Image     *Image
	Audio     *Audio
	Motion    *Motion
	GPS       *GPS
	Wifi      *Wifi
	Bluetooth *Bluetooth
}

// Image is a decoded camera frame. Pixels is row-major 8-bit data with the
// given geometry; eye-tracking streams may additionally carry a gaze
// estimate.
type Image struct {
	Pixels   []byte
	Width    int
	Height   int
	Channels int

	FrameNumber int64
	FrameValid  bool

	GazeVector      [3]float64
	GazeValid       bool
	GazeConfidence  float64
	ConfidenceValid bool
}

// Valid reports whether the frame geometry and buffer are usable.
func (i *Image) Valid() bool {
	if i == nil || i.Width <= 0 || i.Height <= 0 || i.Channels <= 0 {
		return false
	}
	return len(i.Pixels) == i.Width*i.Height*i.Channels
}

// Audio is one microphone chunk of interleaved 32-bit samples.
type Audio struct {
	Samples    []int32
	SampleRate int
	Channels   int
}

// Valid reports whether the chunk can be framed into whole samples.
func (a *Audio) Valid() bool {
	return a != nil && len(a.Samples) > 0 && a.Channels > 0 && a.SampleRate > 0 &&
		len(a.Samples)%a.Channels == 0
}

// Motion is one IMU sample; each vector carries its own validity flag.
type Motion struct {
	Accel      [3]float64 // m/s^2
	AccelValid bool
	Gyro       [3]float64 // rad/s
	GyroValid  bool
	Mag        [3]float64 // tesla
	MagValid   bool
}

// GPS is one location fix.
type GPS struct {
	Latitude      float64
	Longitude     float64
	LatLonValid   bool
	Altitude      float64
	AltValid      bool
	Speed         float64
	SpeedValid    bool
	Accuracy      float64
	AccuracyValid bool
	Provider      string
}

// Wifi is one access-point scan observation.
type Wifi struct {
	APMac     string
	SSID      string
	RSSI      float64
	RSSIValid bool
	FreqMHz   float64
	FreqValid bool
}

// Bluetooth is one beacon reading.
type Bluetooth struct {
	BeaconID     string
	RSSI         float64
	RSSIValid    bool
	TxPower      float64
	TxPowerValid bool
	FreqMHz      float64
	FreqValid    bool
}
