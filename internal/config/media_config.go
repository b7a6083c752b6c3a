package config

const (
	MediaMemory = "memory"
	MediaS3     = "s3"
)

type MediaConfig interface {
	GetMediaDriver() string
	GetMaxUploadBytes() int64
	GetS3() S3Settings
}

// S3Settings configures an S3 compatible bucket, e.g. MinIO in development.
type S3Settings struct {
	Bucket        string `env:"S3_BUCKET"`
	Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint      string `env:"S3_ENDPOINT"`
	AccessKey     string `env:"S3_ACCESS_KEY"`
	SecretKey     string `env:"S3_SECRET_KEY"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

type Media struct {
	MediaDriver    string `env:"MEDIA_DRIVER" envDefault:"memory"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	S3             S3Settings
}

var _ MediaConfig = Media{}

func (m Media) GetMediaDriver() string {
	return m.MediaDriver
}

func (m Media) GetMaxUploadBytes() int64 {
	return m.MaxUploadBytes
}

func (m Media) GetS3() S3Settings {
	return m.S3
}
