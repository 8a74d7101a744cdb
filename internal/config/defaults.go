package config

const (
	defaultConfigPath           = "~/.config/wildcam/config.toml"
	defaultCaptureDir           = "~/.local/share/wildcam/captures"
	defaultDatabasePath         = "~/.local/share/wildcam/wildlife_log.db"
	defaultLogDir               = "~/.local/share/wildcam/logs"
	defaultMQTTBroker           = "localhost"
	defaultMQTTPort             = 1883
	defaultMQTTClientID         = "rpi_processor"
	defaultTriggerTopic         = "WILDLIFE/TRIGGER"
	defaultMQTTKeepAlive        = 60
	defaultMQTTConnectTimeout   = 10
	defaultVideoDurationMS      = 10000
	defaultVideoWidth           = 1280
	defaultVideoHeight          = 720
	defaultRecorderBinary       = "rpicam-vid"
	defaultFFmpegBinary         = "ffmpeg"
	defaultCaptureGraceSeconds  = 20
	defaultFFmpegTimeoutSeconds = 60
	defaultClassifierBackend    = "command"
	defaultClassifierCommand    = "wildcam-detect"
	defaultModelPath            = "~/.local/share/wildcam/models/yolov8n.pt"
	defaultClassifierTimeout    = 60
	defaultNtfyBaseURL          = "https://ntfy.sh"
	defaultNtfyRequestTimeout   = 10
	defaultCooldownSeconds      = 10
	defaultStoreTimeoutSeconds  = 10
	defaultDashboardBind        = "0.0.0.0:5000"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	ClassifierBackendCommand    = "command"
	ClassifierBackendHTTP       = "http"
)

// DefaultAnimalLabels lists the detector classes treated as animals.
var DefaultAnimalLabels = []string{
	"bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	labels := make([]string, len(DefaultAnimalLabels))
	copy(labels, DefaultAnimalLabels)
	return Config{
		Paths: Paths{
			CaptureDir:   defaultCaptureDir,
			DatabasePath: defaultDatabasePath,
			LogDir:       defaultLogDir,
		},
		MQTT: MQTT{
			Broker:                defaultMQTTBroker,
			Port:                  defaultMQTTPort,
			ClientID:              defaultMQTTClientID,
			TriggerTopic:          defaultTriggerTopic,
			KeepAliveSeconds:      defaultMQTTKeepAlive,
			ConnectTimeoutSeconds: defaultMQTTConnectTimeout,
		},
		Capture: Capture{
			DurationMS:           defaultVideoDurationMS,
			Width:                defaultVideoWidth,
			Height:               defaultVideoHeight,
			RecorderBinary:       defaultRecorderBinary,
			FFmpegBinary:         defaultFFmpegBinary,
			GraceSeconds:         defaultCaptureGraceSeconds,
			FFmpegTimeoutSeconds: defaultFFmpegTimeoutSeconds,
		},
		Classifier: Classifier{
			Backend:        defaultClassifierBackend,
			Command:        defaultClassifierCommand,
			ModelPath:      defaultModelPath,
			TimeoutSeconds: defaultClassifierTimeout,
			AnimalLabels:   labels,
		},
		Notifications: Notifications{
			BaseURL:        defaultNtfyBaseURL,
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Pipeline: Pipeline{
			CooldownSeconds:     defaultCooldownSeconds,
			StoreTimeoutSeconds: defaultStoreTimeoutSeconds,
		},
		Dashboard: Dashboard{
			Bind: defaultDashboardBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
