package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string // Empty disables the login cookie check

	CameraSource         string // Device index ("0") or stream URL / file path
	CaptureRetryInterval time.Duration

	ModelPath           string
	DetectionConfidence float64
	ModelInputSize      int

	FrameWidth     int
	FrameHeight    int
	VideoFPS       float64
	VideoCodec     string // FourCC passed to the video writer
	VideoContainer string // File extension of recorded takes

	SeqLength            int
	CollectInterval      int // Run the detector on every Nth frame
	PersistenceThreshold int // Consecutive misses tolerated before the pose is dropped
	SmoothingWindow      int
	RecordDuration       time.Duration
	LabelNames           []string

	VideoDirectory  string
	ExportDirectory string
	DatabasePath    string
	RestoreDataset  bool

	StreamInterval time.Duration
	JPEGQuality    int

	LogDirectory string
}

// Load reads configuration from the environment, after applying a .env file
// from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvAsInt("PORT", 8000),
		Password: getEnv("PASSWORD", ""),

		CameraSource:         getEnv("CAMERA_SOURCE", "0"),
		CaptureRetryInterval: getEnvAsDuration("CAPTURE_RETRY_INTERVAL", 2*time.Second),

		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "yolo11n-pose.onnx")),
		DetectionConfidence: getEnvAsFloat("DETECTION_CONFIDENCE", 0.5),
		ModelInputSize:      getEnvAsInt("MODEL_INPUT_SIZE", 640),

		FrameWidth:     getEnvAsInt("FRAME_WIDTH", 480),
		FrameHeight:    getEnvAsInt("FRAME_HEIGHT", 360),
		VideoFPS:       getEnvAsFloat("VIDEO_FPS", 30),
		VideoCodec:     getEnv("VIDEO_CODEC", "mp4v"),
		VideoContainer: getEnv("VIDEO_CONTAINER", "mp4"),

		SeqLength:            getEnvAsPositiveInt("SEQ_LENGTH", 30),
		CollectInterval:      getEnvAsPositiveInt("COLLECT_INTERVAL", 3),
		PersistenceThreshold: getEnvAsInt("PERSISTENCE_THRESHOLD", 10),
		SmoothingWindow:      getEnvAsPositiveInt("SMOOTHING_WINDOW", 3),
		RecordDuration:       getEnvAsDuration("RECORD_DURATION", 3*time.Second),
		LabelNames:           getEnvAsList("LABEL_NAMES", []string{"Neutral", "Movement", "Suspicious"}),

		VideoDirectory:  getEnv("VIDEO_DIR", filepath.Join(".", "videos")),
		ExportDirectory: getEnv("EXPORT_DIR", "."),
		DatabasePath:    getEnv("DATABASE_PATH", filepath.Join(".", "data", "collector.db")),
		RestoreDataset:  getEnvAsBool("RESTORE_DATASET", true),

		StreamInterval: getEnvAsDuration("STREAM_INTERVAL", 30*time.Millisecond),
		JPEGQuality:    getEnvAsInt("JPEG_QUALITY", 50),

		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// LabelName returns the display name for a label index, or its number when unnamed.
func (c *Config) LabelName(label int) string {
	if label >= 0 && label < len(c.LabelNames) {
		return c.LabelNames[label]
	}
	return strconv.Itoa(label)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsPositiveInt falls back to the default for values below 1.
func getEnvAsPositiveInt(key string, defaultValue int) int {
	if v := getEnvAsInt(key, defaultValue); v >= 1 {
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("3s", "250ms").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
