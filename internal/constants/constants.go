package constants

// Search defaults
const (
	DefaultMatchThreshold = 0.3
	DefaultMatchCount     = 10

	// all-MiniLM-L6-v2 output size
	DefaultVectorDimensions = 384
)

// Embedding provider defaults
const (
	DefaultEmbeddingEndpoint = "https://api-inference.huggingface.co"
	DefaultEmbeddingModel    = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultEmbeddingTimeout  = 60 // seconds
	EmbeddingTokenEnv        = "HF_TOKEN"
)

// Search strategy names
const (
	StrategyAuto = "auto"
	StrategyScan = "scan"
	StrategyVec0 = "vec0"
)

// Server defaults
const (
	DefaultServerHost = "localhost"
	DefaultServerPort = 8080
)

// Text truncation lengths
const (
	PreviewLength      = 100
	ShortPreviewLength = 80
)

// Embedding calculations
const (
	BytesPerFloat32 = 4
)

// File permissions
const (
	ConfigFileMode = 0600 // Secure file permissions for config
)
